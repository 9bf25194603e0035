// This program signs and submits transactions to a node.
package main

import "github.com/ardanlabs/powchain/app/tooling/wallet/cmd"

func main() {
	cmd.Execute()
}
