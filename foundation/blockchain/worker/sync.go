package worker

// syncOperations periodically requests missing blocks from the peers.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.syncTicker.C:
			if !w.isShutdown() {
				w.Sync()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// expireOperations decides the voting rounds that are past their deadline.
func (w *Worker) expireOperations() {
	w.evHandler("worker: expireOperations: G started")
	defer w.evHandler("worker: expireOperations: G completed")

	for {
		select {
		case now := <-w.expireTicker.C:
			if !w.isShutdown() {
				w.state.ExpireRounds(now)
			}
		case <-w.shut:
			w.evHandler("worker: expireOperations: received shut signal")
			return
		}
	}
}
