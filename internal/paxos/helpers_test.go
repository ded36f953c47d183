package paxos

import "github.com/cihadozcan/ahc-paxos/internal/command"

// makeEntry builds an ADD log entry for tests, value fixed at 1 since most
// cases only care about term/index/creator bookkeeping.
func makeEntry(index, term uint64, creator string) command.LogEntry {
	return command.LogEntry{
		Term:      term,
		Command:   command.Command{ID: index, Kind: command.ADD, Value: 1},
		CreatorID: creator,
		Index:     index,
	}
}
