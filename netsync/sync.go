package netsync

import (
	"context"
	"log/slog"
	"path"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/realtime"
	"github.com/pthm-cable/spotlight/store"
	"github.com/pthm-cable/spotlight/systems"
)

// TypePlayer is the Type name given to every joined peer.
const TypePlayer = "player"

// Listener receives round control events.
type Listener interface {
	OnStart(hostMS int64)
	OnEnd()
	OnPlay(roundID string)
}

// Forgetter drops in-flight materialization for a removed entity.
// *systems.Materializer implements it.
type Forgetter interface {
	Forget(id string)
}

// Sync binds one round channel to the store. It is driven from the loop:
// Drain applies everything queued since the last call.
type Sync struct {
	ch     realtime.Channel
	store  *store.Store
	cfg    *config.Config
	local  string
	forget Forgetter
	listen Listener

	peers  map[string]Presence
	sent   map[string]int
	joined bool
}

// New creates a Sync for the local peer on ch.
func New(ch realtime.Channel, s *store.Store, cfg *config.Config, forget Forgetter) *Sync {
	return &Sync{
		ch:     ch,
		store:  s,
		cfg:    cfg,
		local:  ch.Key(),
		forget: forget,
		peers:  make(map[string]Presence),
		sent:   make(map[string]int),
	}
}

// SetListener routes start, end and play.
func (y *Sync) SetListener(l Listener) { y.listen = l }

// LocalID returns the local peer's id.
func (y *Sync) LocalID() string { return y.local }

// Channel returns the underlying channel.
func (y *Sync) Channel() realtime.Channel { return y.ch }

// Join subscribes and announces the local peer.
func (y *Sync) Join(p Presence) error {
	if err := y.ch.Subscribe(); err != nil {
		return err
	}
	p.Force = y.cfg.ClampForce(p.Force)
	if err := y.ch.Track(p); err != nil {
		return err
	}
	y.joined = true
	slog.Info("round_joined", "topic", y.ch.Topic(), "id", y.local, "host", p.IsHost)
	return nil
}

// Leave untracks and unsubscribes. Calling it again does nothing.
func (y *Sync) Leave() error {
	if !y.joined {
		return nil
	}
	y.joined = false
	if err := y.ch.Untrack(); err != nil {
		slog.Debug("untrack_failed", "topic", y.ch.Topic(), "error", err)
	}
	return y.ch.Unsubscribe()
}

// Joined reports whether the channel is still held.
func (y *Sync) Joined() bool { return y.joined }

// Peers returns the ids of every present peer, sorted.
func (y *Sync) Peers() []string {
	ids := make([]string, 0, len(y.peers))
	for id := range y.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Peer returns the presence announced by id.
func (y *Sync) Peer(id string) (Presence, bool) {
	p, ok := y.peers[id]
	return p, ok
}

// Sent counts broadcasts sent per event.
func (y *Sync) Sent(event string) int { return y.sent[event] }

// Drain applies every queued message. It never blocks.
func (y *Sync) Drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case m := <-y.ch.Inbox():
			y.handle(ctx, m)
			n++
		default:
			return n
		}
	}
}

func (y *Sync) handle(ctx context.Context, m realtime.Message) {
	if m.Kind == realtime.KindPresence {
		switch m.Event {
		case realtime.EventSync:
			y.onSync(ctx, m.State)
		case realtime.EventJoin:
			y.onJoin(ctx, m.Key, m.Payload)
		case realtime.EventLeave:
			y.onLeave(m.Key)
		}
		return
	}

	var err error
	switch m.Event {
	case EventTransform:
		var p Transform
		if err = m.Decode(&p); err == nil {
			y.onTransform(p)
		}
	case EventRotate:
		var p RotateReset
		if err = m.Decode(&p); err == nil && p.ID != y.local {
			systems.ResetRotation(y.store, p.ID)
		}
	case EventKnockback:
		var p Knockback
		if err = m.Decode(&p); err == nil {
			y.onKnockback(p)
		}
	case EventSpotlight:
		var p SpotlightTransfer
		if err = m.Decode(&p); err != nil {
			break
		}
		if _, ok := y.peers[p.ID]; !ok || !systems.ApplySpotlightTransfer(y.store, p.ID, p.Prev, p.Score) {
			slog.Debug("spotlight_dropped", "to", p.ID, "from", p.Prev)
			break
		}
		slog.Info("spotlight_received", "to", p.ID, "from", p.Prev, "score", p.Score)
	case EventStart:
		var p Start
		if err = m.Decode(&p); err == nil && y.listen != nil {
			y.listen.OnStart(p.Time)
		}
	case EventEnd:
		if y.listen != nil {
			y.listen.OnEnd()
		}
	case EventPlay:
		var p Play
		if err = m.Decode(&p); err == nil && y.listen != nil {
			y.listen.OnPlay(p.UUID)
		}
	default:
		slog.Debug("unknown_event", "event", m.Event, "from", m.Key)
	}
	if err != nil {
		slog.Warn("bad_payload", "event", m.Event, "from", m.Key, "error", err)
	}
}

// onSync rebuilds the peer view: missed joins are spawned and players
// no longer present are removed.
func (y *Sync) onSync(ctx context.Context, state map[string][]byte) {
	for _, id := range sortedKeys(state) {
		y.onJoin(ctx, id, state[id])
	}
	for id := range y.peers {
		if _, ok := state[id]; !ok {
			y.onLeave(id)
		}
	}
}

func (y *Sync) onJoin(ctx context.Context, id string, payload []byte) {
	var p Presence
	if len(payload) > 0 {
		if err := realtime.Decode(payload, &p); err != nil {
			slog.Warn("bad_presence", "id", id, "error", err)
			return
		}
	}
	y.peers[id] = p
	if y.store.Exists(id) {
		return
	}
	if err := y.spawn(ctx, id, p); err != nil {
		slog.Warn("spawn_failed", "id", id, "error", err)
		return
	}
	if p.IsHost {
		systems.InitSpotlight(y.store, id)
	}
	// A returning holder keeps scoring.
	if spot := y.store.Spotlight(store.SpotlightID); spot != nil && spot.FollowID == id {
		if sc := y.store.Score(id); sc != nil {
			sc.Trigger = true
		}
	}
	slog.Info("player_joined", "id", id, "username", p.Username, "local", id == y.local)
}

func (y *Sync) onLeave(id string) {
	delete(y.peers, id)
	if y.forget != nil {
		y.forget.Forget(id)
	}
	if y.store.Remove(id) {
		slog.Info("player_left", "id", id)
	}
	y.releaseSpotlight(id)
}

// releaseSpotlight hands the spotlight of a departed holder to the host,
// or to the lowest remaining id when the host is gone too. Every peer
// sees the same presence set, so all of them pick the same successor.
func (y *Sync) releaseSpotlight(id string) {
	spot := y.store.Spotlight(store.SpotlightID)
	if spot == nil || spot.FollowID != id {
		return
	}
	spot.FollowID = ""
	next := ""
	for _, peer := range y.Peers() {
		if !y.store.Exists(peer) {
			continue
		}
		if y.peers[peer].IsHost {
			next = peer
			break
		}
		if next == "" {
			next = peer
		}
	}
	if next == "" {
		slog.Info("spotlight_cleared", "holder", id)
		return
	}
	systems.ApplySpotlightTransfer(y.store, next, id, 0)
	slog.Info("spotlight_released", "holder", id, "to", next)
}

// spawn creates a player entity. Only the local peer gets the components
// that read input or publish state.
func (y *Sync) spawn(ctx context.Context, id string, p Presence) error {
	if _, err := y.store.Create(id); err != nil {
		return err
	}
	a := y.cfg.Arena
	skin := p.Skin
	if skin == "" {
		skin = a.DefaultSkin
	}
	name := p.Username
	if name == "" {
		name = id
	}

	descs := []components.Descriptor{
		&components.Type{Name: TypePlayer},
		components.NewTransform(mgl64.Vec3{0, a.PlayerSpawnY, 0}),
		&components.Model{
			Bucket: a.PlayerModel.Bucket,
			File:   path.Join("players", skin),
			Scale:  a.PlayerModel.Scale.Vec3(),
		},
		&components.Hitbox{Width: a.PlayerHitbox.Width, Height: a.PlayerHitbox.Height, Depth: a.PlayerHitbox.Depth},
		&components.Text{Text: name, Offset: mgl64.Vec3{0, a.LabelOffsetY, 0}, Size: a.LabelSize},
		&components.Score{},
	}
	if id == y.local {
		descs = append(descs,
			&components.Physic{Static: true, ApplyForce: true, Mass: 1},
			&components.Controller2{MaxCooldown: y.cfg.Dash.MaxCooldown, Clockwise: true},
			&components.Camera2{Distance: y.cfg.Camera.Distance, Height: y.cfg.Camera.Height},
			&components.Sync{},
			&components.Death{OnDeath: components.DeathTransferSpotlight},
			components.NewCollision(y.cfg.ClampForce(p.Force)),
		)
	}
	for _, d := range descs {
		if err := y.store.Attach(id, d); err != nil {
			return err
		}
	}
	if meta := y.store.Meta(id); meta != nil {
		meta.Remote = id != y.local
	}
	return y.store.Materialize(ctx, id)
}

// onTransform overwrites a remote pose. The local player is authoritative
// over its own.
func (y *Sync) onTransform(p Transform) {
	if p.ID == y.local {
		return
	}
	st := p.Transform
	systems.ApplyRemoteTransform(y.store, p.ID, st.Position.Vec3(), st.Rotation.Vec3(), st.Scale.Vec3())
}

// onKnockback applies a push addressed to the local player.
func (y *Sync) onKnockback(p Knockback) {
	if p.ID != y.local {
		return
	}
	if _, ok := y.peers[p.From]; !ok {
		slog.Debug("knockback_dropped", "by", p.From)
		return
	}
	k := systems.Knockback{
		ID:    p.ID,
		Push:  mgl64.Vec3{p.X, p.Y, p.Z},
		Force: y.cfg.ClampForce(p.Force),
		From:  p.From,
	}
	if systems.ApplyKnockback(y.store, y.cfg.Knockback.Displacement, k) {
		slog.Info("knocked_back", "id", p.ID, "by", p.From, "force", k.Force)
	}
}

// Send broadcasts a round control event.
func (y *Sync) Send(event string, payload any) {
	if !y.joined {
		return
	}
	if err := y.ch.Send(event, payload); err != nil {
		slog.Debug("send_failed", "event", event, "error", err)
		return
	}
	y.sent[event]++
}

// EmitTransform publishes the local pose.
func (y *Sync) EmitTransform(id string, tr components.Transform) {
	y.Send(EventTransform, Transform{
		ID: id,
		Transform: TransformState{
			Position: toVec(tr.Position),
			Rotation: toVec(tr.Rotation),
			Scale:    toVec(tr.Scale),
		},
	})
}

// EmitRotateReset tells peers to restart rotation smoothing for id.
func (y *Sync) EmitRotateReset(id string) {
	y.Send(EventRotate, RotateReset{ID: id})
}

// EmitKnockback addresses a push to its target's owner.
func (y *Sync) EmitKnockback(k systems.Knockback) {
	y.Send(EventKnockback, Knockback{
		ID:    k.ID,
		X:     k.Push.X(),
		Y:     k.Push.Y(),
		Z:     k.Push.Z(),
		Force: k.Force,
		From:  k.From,
	})
}

// EmitSpotlightTransfer announces the new holder.
func (y *Sync) EmitSpotlightTransfer(next, prev string, score float64) {
	y.Send(EventSpotlight, SpotlightTransfer{ID: next, Prev: prev, Score: score})
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
