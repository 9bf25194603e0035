package state_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const privateKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// =============================================================================

// cluster connects states in memory. Messages are delivered synchronously.
type cluster struct {
	mu     sync.Mutex
	nodes  map[string]*state.State
	outbox []sent
}

type sent struct {
	from string
	to   string
	msg  peer.Message
}

func newCluster() *cluster {
	return &cluster{nodes: make(map[string]*state.State)}
}

func (c *cluster) join(id string, st *state.State) {
	c.mu.Lock()
	c.nodes[id] = st
	c.mu.Unlock()

	st.SetNetwork(&link{id: id, cluster: c})
}

func (c *cluster) deliver(from, to string, msg peer.Message) error {
	c.mu.Lock()
	c.outbox = append(c.outbox, sent{from: from, to: to, msg: msg})
	node, exists := c.nodes[to]
	c.mu.Unlock()

	if !exists {
		return nil
	}

	return node.HandleMessage(from, msg)
}

func (c *cluster) sentNamed(name peer.Name) []sent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []sent
	for _, s := range c.outbox {
		if s.msg.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// link is the view of the cluster from one node.
type link struct {
	id      string
	cluster *cluster
}

func (l *link) Send(peerID string, msg peer.Message) error {
	return l.cluster.deliver(l.id, peerID, msg)
}

func (l *link) Broadcast(msg peer.Message, except string) {
	for _, peerID := range l.Peers() {
		if peerID != except {
			l.cluster.deliver(l.id, peerID, msg)
		}
	}
}

func (l *link) Peers() []string {
	l.cluster.mu.Lock()
	defer l.cluster.mu.Unlock()

	var peers []string
	for id := range l.cluster.nodes {
		if id != l.id {
			peers = append(peers, id)
		}
	}
	return peers
}

// recorder is a network of fixed peers that records what is sent.
type recorder struct {
	mu         sync.Mutex
	peers      []string
	sends      []sent
	broadcasts []peer.Message
}

func (r *recorder) Send(peerID string, msg peer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sends = append(r.sends, sent{to: peerID, msg: msg})
	return nil
}

func (r *recorder) Broadcast(msg peer.Message, except string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcasts = append(r.broadcasts, msg)
}

func (r *recorder) Peers() []string {
	return r.peers
}

func (r *recorder) lastBroadcast(t *testing.T) peer.Variant {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.broadcasts) == 0 {
		t.Fatalf("\t%s\tShould have broadcast a message.", failed)
	}

	v, err := r.broadcasts[len(r.broadcasts)-1].Decode()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to decode the broadcast: %s", failed, err)
	}
	return v
}

// =============================================================================

func newState(t *testing.T, difficulty uint) *state.State {
	t.Helper()

	gen := genesis.Default()
	gen.Difficulty = difficulty
	gen.MiningStrategy = "bruteforce"

	st, err := state.New(state.Config{
		Host:     "localhost:9080",
		Database: database.New(memory.New(), gen.StartingCredit),
		Genesis:  gen,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	if err := st.CreateGenesisBlock(); err != nil {
		t.Fatalf("Should be able to create the genesis block: %s", err)
	}

	return st
}

func sign(t *testing.T, source, target string, amount uint64, timestamp uint64) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	tx := database.Tx{
		Amount:    amount,
		Source:    database.AccountID(source),
		Target:    database.AccountID(target),
		Timestamp: timestamp,
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	return signedTx
}

func addBlock(t *testing.T, st *state.State, trans ...database.SignedTx) database.Block {
	t.Helper()

	block, err := st.AddBlock(context.Background(), trans)
	if err != nil {
		t.Fatalf("Should be able to add a block: %s", err)
	}

	return block
}

func tip(t *testing.T, st *state.State) string {
	t.Helper()

	hash, err := st.LatestHash()
	if err != nil {
		t.Fatalf("Should be able to read the tip: %s", err)
	}

	return hash
}

// =============================================================================

func Test_AddBlock(t *testing.T) {
	t.Log("Given the need to mine and append a block.")
	{
		st := newState(t, 4)
		net := recorder{peers: []string{"peer1"}}
		st.SetNetwork(&net)

		t.Logf("\tTest 0:\tWhen mining a transfer from alice to bob at difficulty 4.")
		{
			tx := sign(t, "alice", "bob", 10, 1700000000)
			block := addBlock(t, st, tx)

			if block.Predecessor != database.GenesisHash {
				t.Fatalf("\t%s\tTest 0:\tShould build on top of genesis, got %s.", failed, block.Predecessor)
			}
			t.Logf("\t%s\tTest 0:\tShould build on top of genesis.", success)

			root, err := database.TransRoot(block.Leaves(), *block.Nonce)
			if err != nil || !strings.HasPrefix(root, "0000") {
				t.Fatalf("\t%s\tTest 0:\tShould solve the proof of work, got %s: %v", failed, root, err)
			}
			t.Logf("\t%s\tTest 0:\tShould solve the proof of work.", success)

			if err := block.Validate(database.StartingCredit(100), 4, func(string, ...any) {}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould validate: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould validate.", success)

			if tip(t, st) != block.SavedHash {
				t.Fatalf("\t%s\tTest 0:\tShould advance the tip.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould advance the tip.", success)

			if bal, _ := st.Balance("bob"); bal != 110 {
				t.Fatalf("\t%s\tTest 0:\tShould credit bob, got %d.", failed, bal)
			}
			t.Logf("\t%s\tTest 0:\tShould credit bob.", success)

			v, ok := net.lastBroadcast(t).(peer.Block)
			if !ok || v.Block.Hash != block.SavedHash {
				t.Fatalf("\t%s\tTest 0:\tShould broadcast the block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould broadcast the block.", success)
		}

		t.Logf("\tTest 1:\tWhen creating the genesis block again.")
		{
			before := tip(t, st)
			if err := st.CreateGenesisBlock(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be idempotent: %s", failed, err)
			}
			if tip(t, st) != before {
				t.Fatalf("\t%s\tTest 1:\tShould leave the tip alone.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the tip alone.", success)
		}

		t.Logf("\tTest 2:\tWhen mining is pre-empted.")
		{
			before := tip(t, st)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := st.AddBlock(ctx, []database.SignedTx{sign(t, "bob", "carol", 5, 1700000001)}); !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 2:\tShould abort with the context error, got %v.", failed, err)
			}
			if tip(t, st) != before {
				t.Fatalf("\t%s\tTest 2:\tShould not change the tip.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould abort without changing the chain.", success)
		}

		t.Logf("\tTest 3:\tWhen a transaction overdraws.")
		{
			before := tip(t, st)

			if _, err := st.AddBlock(context.Background(), []database.SignedTx{sign(t, "carol", "bob", 500, 1700000002)}); !errors.Is(err, database.ErrInsufficientBalance) {
				t.Fatalf("\t%s\tTest 3:\tShould reject the block, got %v.", failed, err)
			}
			if tip(t, st) != before {
				t.Fatalf("\t%s\tTest 3:\tShould not change the tip.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould reject the block.", success)
		}
	}
}

func Test_AddBlockWithoutValidation(t *testing.T) {
	t.Log("Given the need to bootstrap a chain with trusted data.")
	{
		st := newState(t, 4)

		block, err := st.AddBlockWithoutValidation([]database.SignedTx{sign(t, "alice", "bob", 10, 1700000000)})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to add the block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to add the block.", success)

		if *block.Nonce != 0 || tip(t, st) != block.SavedHash {
			t.Fatalf("\t%s\tShould write a zero nonce block at the tip.", failed)
		}
		t.Logf("\t%s\tShould write a zero nonce block at the tip.", success)
	}
}

func Test_Sync(t *testing.T) {
	t.Log("Given the need to keep peers in sync.")
	{
		a := newState(t, 2)
		b := newState(t, 2)

		b1 := addBlock(t, a, sign(t, "alice", "bob", 10, 1700000000))
		b2 := addBlock(t, a, sign(t, "bob", "carol", 20, 1700000001))

		c := newCluster()
		c.join("a", a)
		c.join("b", b)

		t.Logf("\tTest 0:\tWhen a node behind asks for blocks.")
		{
			if err := b.RequestBlocks("a"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to request blocks: %s", failed, err)
			}

			if tip(t, b) != b2.SavedHash {
				t.Fatalf("\t%s\tTest 0:\tShould catch up to the peer.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould catch up to the peer.", success)

			chain, _ := b.Chain()
			if len(chain) != 2 || chain[0].SavedHash != b1.SavedHash {
				t.Fatalf("\t%s\tTest 0:\tShould store the blocks in order.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould store the blocks in order.", success)
		}

		t.Logf("\tTest 1:\tWhen the nodes are in sync.")
		{
			req := peer.GetBlocks{LatestHash: tip(t, b)}
			resp, err := a.ServeGetBlocks("b", req)
			if err != nil || resp.Info != peer.InfoAlreadySynced || len(resp.Blocks) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould answer already-synced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould answer already-synced.", success)

			resp, err = a.ServeGetBlocks("b", peer.GetBlocks{LatestHash: b1.SavedHash})
			if err != nil || resp.Info != peer.InfoNone || len(resp.Blocks) != 1 || resp.Blocks[0].Hash != b2.SavedHash {
				t.Fatalf("\t%s\tTest 1:\tShould answer with the segment after the hash: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould answer with the segment after the hash.", success)
		}

		t.Logf("\tTest 2:\tWhen a node mines a new block.")
		{
			b3 := addBlock(t, a, sign(t, "carol", "dave", 5, 1700000002))

			if tip(t, b) != b3.SavedHash {
				t.Fatalf("\t%s\tTest 2:\tShould be accepted by the peer.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould be accepted by the peer.", success)

			for _, s := range c.sentNamed(peer.NameBlock) {
				if s.from == "b" && s.to == "a" {
					t.Fatalf("\t%s\tTest 2:\tShould not relay the block back to the sender.", failed)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould not relay the block back to the sender.", success)

			if err := b.ProcessBlock("a", database.NewBlockData(b3)); !errors.Is(err, database.ErrDuplicateBlock) {
				t.Fatalf("\t%s\tTest 2:\tShould reject a duplicate, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a duplicate.", success)
		}
	}
}

func Test_ForkResolution(t *testing.T) {
	t.Log("Given the need to resolve a fork with the longest chain.")
	{
		long := newState(t, 2)
		short := newState(t, 2)

		addBlock(t, long, sign(t, "alice", "bob", 10, 1700000000))
		l2 := addBlock(t, long, sign(t, "bob", "carol", 20, 1700000001))
		s1 := addBlock(t, short, sign(t, "dave", "erin", 30, 1700000002))

		t.Logf("\tTest 0:\tWhen the peer's chain is not longer.")
		{
			resp, err := short.ServeGetBlocks("long", peer.GetBlocks{LatestHash: l2.SavedHash})
			if err != nil || resp.Info != peer.InfoForkDetected || len(resp.Blocks) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould detect the fork: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould detect the fork.", success)

			if err := long.ProcessBlocks("short", resp); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould ignore the shorter chain: %s", failed, err)
			}
			if tip(t, long) != l2.SavedHash {
				t.Fatalf("\t%s\tTest 0:\tShould keep the local chain.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the local chain.", success)
		}

		t.Logf("\tTest 1:\tWhen the peer's chain is longer.")
		{
			resp, err := long.ServeGetBlocks("short", peer.GetBlocks{LatestHash: s1.SavedHash})
			if err != nil || resp.Info != peer.InfoForkDetected || len(resp.Blocks) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould detect the fork: %v", failed, err)
			}

			if err := short.ProcessBlocks("long", resp); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould adopt the longer chain: %s", failed, err)
			}
			if tip(t, short) != l2.SavedHash {
				t.Fatalf("\t%s\tTest 1:\tShould move the tip to the peer's tip.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould adopt the longer chain.", success)

			chain, _ := short.Chain()
			if len(chain) != 2 || chain[0].Predecessor != database.GenesisHash {
				t.Fatalf("\t%s\tTest 1:\tShould keep genesis as the root.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould keep genesis as the root.", success)

			if bal, _ := short.Balance("erin"); bal != 100 {
				t.Fatalf("\t%s\tTest 1:\tShould drop the effect of the stale block, got %d.", failed, bal)
			}
			t.Logf("\t%s\tTest 1:\tShould drop the effect of the stale block.", success)
		}
	}
}

func Test_BatchRejection(t *testing.T) {
	t.Log("Given the need to reject bad batches as a whole.")
	{
		source := newState(t, 2)
		x1 := addBlock(t, source, sign(t, "alice", "bob", 10, 1700000000))
		x2 := addBlock(t, source, sign(t, "bob", "carol", 10, 1700000001))

		other := newState(t, 2)
		y1 := addBlock(t, other, sign(t, "dave", "erin", 10, 1700000002))

		tampered := database.NewBlockData(x2)
		tampered.Trans = []database.SignedTx{tampered.Trans[0]}
		tampered.Trans[0].Amount = 11

		tests := []struct {
			name   string
			blocks []database.BlockData
			err    error
		}{
			{"two successors", []database.BlockData{database.NewBlockData(x1), database.NewBlockData(y1)}, database.ErrNonLinearChain},
			{"no successor", []database.BlockData{database.NewBlockData(x2)}, database.ErrNonLinearChain},
			{"invalid signature", []database.BlockData{database.NewBlockData(x1), tampered}, database.ErrSignature},
		}

		for testID, tst := range tests {
			f := func(t *testing.T) {
				st := newState(t, 2)

				err := st.ProcessBlocks("peer", peer.Blocks{Blocks: tst.blocks, Info: peer.InfoNone})
				if !errors.Is(err, tst.err) {
					t.Fatalf("\t%s\tTest %d:\tShould reject the batch with %v, got %v.", failed, testID, tst.err, err)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the batch.", success, testID)

				if tip(t, st) != database.GenesisHash {
					t.Fatalf("\t%s\tTest %d:\tShould not persist any block.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould not persist any block.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_AdmissionVote(t *testing.T) {
	t.Log("Given the need to vote on admitting transactions.")
	{
		t.Logf("\tTest 0:\tWhen one of three peers votes no.")
		{
			st := newState(t, 2)
			net := recorder{peers: []string{"peer1", "peer2", "peer3"}}
			st.SetNetwork(&net)

			roundID, err := st.SubmitTransaction(sign(t, "alice", "bob", 10, 1700000000))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to propose: %s", failed, err)
			}

			if v, ok := net.lastBroadcast(t).(peer.PrepareToValidate); !ok || v.RoundID != roundID {
				t.Fatalf("\t%s\tTest 0:\tShould broadcast prepare-to-validate.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould broadcast prepare-to-validate.", success)

			for _, v := range []struct {
				peer  string
				valid bool
			}{{"peer1", true}, {"peer2", false}, {"peer3", true}} {
				msg, _ := peer.Encode(peer.Vote{RoundID: roundID, Valid: v.valid})
				if err := st.HandleMessage(v.peer, msg); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould record the vote: %s", failed, err)
				}
			}

			d, ok := net.lastBroadcast(t).(peer.GlobalDecision)
			if !ok || d.RoundID != roundID || d.Valid {
				t.Fatalf("\t%s\tTest 0:\tShould broadcast a false decision.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould broadcast a false decision.", success)

			if st.MempoolLength() != 0 || st.PendingRounds() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould reject the transaction and clear the round.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the transaction and clear the round.", success)
		}

		t.Logf("\tTest 1:\tWhen every peer votes yes.")
		{
			st := newState(t, 2)
			net := recorder{peers: []string{"peer1", "peer2"}}
			st.SetNetwork(&net)

			roundID, _ := st.SubmitTransaction(sign(t, "alice", "bob", 10, 1700000000))
			for _, p := range net.peers {
				msg, _ := peer.Encode(peer.Vote{RoundID: roundID, Valid: true})
				st.HandleMessage(p, msg)
			}

			if d, ok := net.lastBroadcast(t).(peer.GlobalDecision); !ok || !d.Valid {
				t.Fatalf("\t%s\tTest 1:\tShould broadcast a true decision.", failed)
			}
			if st.MempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould admit the transaction.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould admit the transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen a participant is asked to vote.")
		{
			st := newState(t, 2)
			net := recorder{}
			st.SetNetwork(&net)

			roundID := "0b7d3c5e-8d3a-4a6c-9b1e-4f6f0e2d9a11"
			msg, _ := peer.Encode(peer.PrepareToValidate{RoundID: roundID, Tx: sign(t, "alice", "bob", 10, 1700000000)})
			if err := st.HandleMessage("coordinator", msg); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould handle the request: %s", failed, err)
			}

			if len(net.sends) != 1 || net.sends[0].to != "coordinator" {
				t.Fatalf("\t%s\tTest 2:\tShould answer the coordinator.", failed)
			}
			v, err := net.sends[0].msg.Decode()
			if vote, ok := v.(peer.Vote); err != nil || !ok || !vote.Valid {
				t.Fatalf("\t%s\tTest 2:\tShould vote yes on a valid transaction.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould vote yes on a valid transaction.", success)

			msg, _ = peer.Encode(peer.GlobalDecision{RoundID: roundID, Valid: true})
			st.HandleMessage("coordinator", msg)
			if st.MempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould apply the decision to the mempool.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould apply the decision to the mempool.", success)
		}

		t.Logf("\tTest 3:\tWhen a vote arrives for an unknown round.")
		{
			st := newState(t, 2)

			msg, _ := peer.Encode(peer.Vote{RoundID: "0b7d3c5e-8d3a-4a6c-9b1e-4f6f0e2d9a11", Valid: true})
			if err := st.HandleMessage("peer1", msg); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould log and drop the vote: %s", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould log and drop the vote.", success)
		}
	}
}

func Test_MempoolEviction(t *testing.T) {
	t.Log("Given the need to drop mempool transactions the chain no longer accepts.")
	{
		st := newState(t, 1)

		t.Logf("\tTest 0:\tWhen a peer's block spends the funds of an admitted transaction.")
		{
			if _, err := st.SubmitTransaction(sign(t, "alice", "bob", 60, 1700000000)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould admit the transaction: %s", failed, err)
			}

			other := newState(t, 1)
			competing := addBlock(t, other, sign(t, "alice", "carol", 60, 1700000001))

			if err := st.ProcessBlock("peer1", database.NewBlockData(competing)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the peer's block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the peer's block.", success)

			if n := st.MempoolLength(); n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould evict the overspending transaction, got %d left.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould evict the overspending transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen admitted transactions overspend together.")
		{
			for i, tx := range []database.SignedTx{
				sign(t, "bob", "dave", 5, 1700000002),
				sign(t, "alice", "erin", 30, 1700000003),
				sign(t, "alice", "frank", 30, 1700000004),
			} {
				if _, err := st.SubmitTransaction(tx); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould admit transaction %d: %s", failed, i, err)
				}
			}

			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould mine the transactions that fit: %s", failed, err)
			}
			if len(block.Trans) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould mine two transactions, got %d.", failed, len(block.Trans))
			}
			t.Logf("\t%s\tTest 1:\tShould mine the transactions that fit.", success)

			if n := st.MempoolLength(); n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould evict the transaction that can't be mined, got %d left.", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould evict the transaction that can't be mined.", success)

			for _, want := range []struct {
				account database.AccountID
				balance int64
			}{{"alice", 10}, {"dave", 105}, {"erin", 130}, {"frank", 100}} {
				if bal, _ := st.Balance(want.account); bal != want.balance {
					t.Fatalf("\t%s\tTest 1:\tShould leave %s with %d, got %d.", failed, want.account, want.balance, bal)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould apply only the mined transactions.", success)

			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest 1:\tShould have nothing left to mine, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould have nothing left to mine.", success)
		}
	}
}
