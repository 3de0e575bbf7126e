package lobby

import (
	"math/rand/v2"

	"github.com/DoyleJ11/sketch-duel/internal/engine"
)

// Judge picks the winning seat of a finished round.
type Judge interface {
	Decide(s engine.State) engine.Seat
}

type JudgeFunc func(s engine.State) engine.Seat

func (f JudgeFunc) Decide(s engine.State) engine.Seat { return f(s) }

// RandomJudge flips a coin.
var RandomJudge Judge = JudgeFunc(func(engine.State) engine.Seat {
	return engine.Seat(rand.IntN(2))
})

var randIntN = rand.IntN

var DefaultPrompts = []string{
	"Draw a mountain",
	"Draw a cat",
	"Draw a lighthouse",
	"Draw a bicycle",
	"Draw a cactus",
	"Draw a rocket",
	"Draw a teapot",
	"Draw a dragon",
	"Draw a castle",
	"Draw a whale",
}
