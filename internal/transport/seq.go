package transport

import (
	"github.com/google/uuid"

	"github.com/cihadozcan/ahc-paxos/internal/paxos"
)

// stampSeq assigns a unique wire-level trace id to env.Header.Seq if one
// isn't already present, so every hop an envelope takes through a
// transport can be correlated in logs even across retries and
// broadcasts. It never influences protocol outcomes: Command.ID, not
// Seq, is what the core reasons about.
func stampSeq(env *paxos.Envelope) {
	if env.Header.Seq == "" {
		env.Header.Seq = uuid.NewString()
	}
}
