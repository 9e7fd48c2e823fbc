// Package npc plays a computer-controlled fighter by watching its room like any
// other client and answering whenever the fighter is expected to act.
package npc

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
	"github.com/DoyleJ11/dice-duel-backend/internal/lobby"
)

const DefaultDelay = 1200 * time.Millisecond

type Driver struct {
	lb        *lobby.Lobby
	fighterID string
	delay     time.Duration
	buffer    int
	rng       *rand.Rand
	log       *zap.Logger
}

type Option func(*Driver)

// WithDelay sets how long the driver "thinks" before every action.
func WithDelay(d time.Duration) Option {
	return func(dr *Driver) { dr.delay = d }
}

// WithBuffer sets how many snapshots may queue up before the room drops the
// driver as too slow.
func WithBuffer(n int) Option {
	return func(dr *Driver) { dr.buffer = n }
}

// WithSeed makes the driver's choices reproducible.
func WithSeed(seed uint64) Option {
	return func(dr *Driver) { dr.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func New(lb *lobby.Lobby, fighterID string, log *zap.Logger, opts ...Option) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Driver{
		lb:        lb,
		fighterID: fighterID,
		delay:     DefaultDelay,
		buffer:    8,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		log:       log.With(zap.String("room", lb.Code()), zap.String("npc", fighterID)),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Launcher adapts the driver to the hub's auto player hook. Each call starts a
// driver in its own goroutine.
func Launcher(log *zap.Logger, opts ...Option) func(ctx context.Context, lb *lobby.Lobby, fighterID string) {
	return func(ctx context.Context, lb *lobby.Lobby, fighterID string) {
		d := New(lb, fighterID, log, opts...)
		go func() {
			if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.log.Warn("npc driver stopped", zap.Error(err))
			}
		}()
	}
}

// Run follows the room until it closes, the battle ends or ctx is done. When
// the room drops the driver for falling behind, it subscribes again.
func (d *Driver) Run(ctx context.Context) error {
	var (
		actedSeq int // phase instance already answered
		timer    *time.Timer
		fire     <-chan time.Time
		planned  engine.Room
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, fire = nil, nil
	}
	defer stop()

	sub, err := d.lb.Subscribe(ctx, "npc:"+d.fighterID, d.buffer)
	if err != nil {
		return err
	}
	defer func() { sub.Leave() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-sub.C:
			if !ok {
				if !errors.Is(sub.Err(), lobby.ErrTooSlow) {
					d.log.Debug("room feed closed", zap.Error(sub.Err()))
					return nil
				}
				d.log.Info("npc fell behind, resubscribing")
				fresh, err := d.lb.Subscribe(ctx, "npc:"+d.fighterID, d.buffer)
				if errors.Is(err, lobby.ErrClosed) {
					return nil
				}
				if err != nil {
					return err
				}
				sub = fresh
				continue
			}
			room := snap.State
			if room.Status == engine.StatusFinished {
				return nil
			}
			acting, ok := room.ActingID()
			if !ok || acting != d.fighterID {
				stop()
				continue
			}
			if seq := room.Battle.Turn.Seq; seq != actedSeq {
				actedSeq = seq
				stop()
				planned = room
				timer = time.NewTimer(d.delay)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			d.act(ctx, planned)
		}
	}
}

func (d *Driver) act(ctx context.Context, room engine.Room) {
	turn := room.Battle.Turn
	cmd := engine.Command{Actor: d.fighterID, Seq: turn.Seq}

	switch turn.Phase {
	case engine.PhaseSelectTarget:
		targets := room.LivingOpponents(d.fighterID)
		if len(targets) == 0 {
			return
		}
		cmd.Type = engine.CmdSelectTarget
		cmd.TargetID = targets[d.rng.IntN(len(targets))].ID
	case engine.PhaseRollingAttack:
		cmd.Type = engine.CmdSubmitAttackRoll
		cmd.Roll = d.roll(room.Battle.DieSides)
	case engine.PhaseRollingDefend:
		cmd.Type = engine.CmdSubmitDefendRoll
		cmd.Roll = d.roll(room.Battle.DieSides)
	case engine.PhaseResolving, engine.PhaseFinished:
		return
	default:
		d.log.Warn("unknown phase", zap.String("phase", string(turn.Phase)))
		return
	}

	err := d.lb.Submit(ctx, cmd)
	switch {
	case err == nil:
		d.log.Debug("npc acted", zap.String("type", string(cmd.Type)), zap.String("target", cmd.TargetID), zap.Int("roll", cmd.Roll))
	case errors.Is(err, engine.ErrStaleAction), errors.Is(err, engine.ErrBattleFinished):
		// the room moved on while we were thinking
	default:
		d.log.Warn("npc action rejected", zap.String("type", string(cmd.Type)), zap.Error(err))
	}
}

func (d *Driver) roll(sides int) int {
	if sides < 1 {
		sides = engine.DefaultDieSides
	}
	return 1 + d.rng.IntN(sides)
}
