// Package protocol defines the messages exchanged between a duel client and
// the session authority. Every frame is a JSON envelope {"type", "data"}.
//
// Client -> Server
//
//	join:        {identity, username}
//	play-again:  {}
//	send-stroke: {points: [{x, y}, ...]}   logical coordinates
//	undo:        {}
//	clear:       {}
//	end-round:   {}                        local timer expired
//
// Server -> Client
//
//	round-start:    {prompt, participants: [name, name], selfIndex, timer}
//	round-ended:    {winner}
//	receive-stroke: {points: [{x, y}, ...]}
//	undo-confirm:   {}   removes the receiver's own last stroke
//	clear-confirm:  {}   empties the receiver's own strokes
//	opponent-undo:  {}
//	opponent-clear: {}
//	opponent-leave: {}
//	error:          {message}
package protocol
