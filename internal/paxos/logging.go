package paxos

import (
	"fmt"
	"log"
)

// LogLevel is the severity threshold of a Logger.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger provides structured, leveled logging for a single replica, in the
// shape of the teacher's raft/logging.go: one specialized method per event
// kind wrapping a shared formatter.
type Logger struct {
	nodeID string
	level  LogLevel
}

// NewLogger creates a logger for the given node id.
func NewLogger(nodeID string, level LogLevel) *Logger {
	return &Logger{nodeID: nodeID, level: level}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.log("DEBUG", format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= LevelInfo {
		l.log("INFO", format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= LevelWarn {
		l.log("WARN", format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= LevelError {
		l.log("ERROR", format, args...)
	}
}

func (l *Logger) log(level, format string, args ...interface{}) {
	prefix := fmt.Sprintf("[%s] [%s] ", l.nodeID, level)
	log.Printf(prefix+format, args...)
}

func (l *Logger) LogStateChange(old, new Role, term uint64) {
	l.Info("%s -> %s (term=%d)", old, new, term)
}

func (l *Logger) LogElectionStart(term uint64) {
	l.Info("starting election for term %d", term)
}

func (l *Logger) LogElectionWon(term uint64, votes, needed int) {
	l.Info("won election for term %d (promises=%d/%d)", term, votes, needed)
}

func (l *Logger) LogVoteGranted(candidateID string, term uint64) {
	l.Info("granted promise to %s for term %d", candidateID, term)
}

func (l *Logger) LogVoteDenied(candidateID string, term uint64, reason string) {
	l.Info("denied promise to %s for term %d: %s", candidateID, term, reason)
}

func (l *Logger) LogHeartbeatSent(term uint64, peerCount int) {
	l.Debug("sent heartbeat to %d peers (term=%d)", peerCount, term)
}

func (l *Logger) LogHeartbeatReceived(leaderID string, term uint64) {
	l.Debug("received heartbeat from %s (term=%d)", leaderID, term)
}

func (l *Logger) LogAppendEntries(leaderID string, term, prevLogIndex uint64, entryCount int) {
	l.Debug("received propose from %s (term=%d, prevIndex=%d, entries=%d)", leaderID, term, prevLogIndex, entryCount)
}

func (l *Logger) LogCommit(index, term uint64) {
	l.Info("committed entry at index=%d (term=%d)", index, term)
}

func (l *Logger) LogApply(index uint64, cmd fmt.Stringer) {
	l.Info("applied command at index=%d: %s", index, cmd)
}

func (l *Logger) LogStepDown(oldTerm, newTerm uint64) {
	l.Info("stepping down: term %d -> %d", oldTerm, newTerm)
}

func (l *Logger) LogElectionTimeout() {
	l.Debug("election timeout observed")
}

// Invariant reports an invariant violation (spec.md §7 category 2). Callers
// pass the offending role/term/message kind; this panics rather than
// returning, since an invariant violation indicates a bug, not a protocol
// disagreement.
func (l *Logger) Invariant(what string, role Role, term uint64, kind MessageType) {
	l.Error("invariant violated: %s (role=%s term=%d kind=%s)", what, role, term, kind)
	panic(fmt.Sprintf("paxos: invariant violated: %s (role=%s term=%d kind=%s)", what, role, term, kind))
}
