package round

import (
	"log/slog"
	"sort"

	"github.com/pthm-cable/spotlight/realtime"
)

// FinalScore is what each peer tracks on the summary channel.
type FinalScore struct {
	Username string  `msgpack:"username"`
	Score    float64 `msgpack:"score"`
}

// Standing is one row of the summary, keyed by peer id.
type Standing struct {
	ID string
	FinalScore
}

// SummaryRoom exchanges final scores after a round.
type SummaryRoom struct {
	ch realtime.Channel
}

// JoinSummary subscribes to the round's summary channel and tracks this
// peer's final score.
func JoinSummary(t realtime.Transport, roundID, key string, score FinalScore) (*SummaryRoom, error) {
	ch := t.Channel(SummaryTopic(roundID), key)
	if err := ch.Subscribe(); err != nil {
		return nil, err
	}
	if err := ch.Track(score); err != nil {
		_ = ch.Unsubscribe()
		return nil, err
	}
	slog.Info("summary_joined", "round", roundID, "score", score.Score)
	return &SummaryRoom{ch: ch}, nil
}

// Drain discards queued traffic; Standings reads presence state.
func (r *SummaryRoom) Drain() {
	for {
		select {
		case <-r.ch.Inbox():
		default:
			return
		}
	}
}

// Standings returns known final scores, best first.
func (r *SummaryRoom) Standings() []Standing {
	var out []Standing
	for id, payload := range r.ch.PresenceState() {
		var fs FinalScore
		if err := realtime.Decode(payload, &fs); err != nil {
			continue
		}
		out = append(out, Standing{ID: id, FinalScore: fs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Close leaves the summary channel.
func (r *SummaryRoom) Close() error {
	if !r.ch.Subscribed() {
		return nil
	}
	_ = r.ch.Untrack()
	return r.ch.Unsubscribe()
}
