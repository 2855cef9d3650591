package engine

import (
	"strings"
	"unicode/utf8"
)

// Guard is the precondition a command declares. It is checked before the
// handler runs, in field order.
type Guard struct {
	CurrentPlayer bool   // caller must hold the current seat
	Status        Status // StatusAny accepts every status
	Phase         Phase  // AnyPhase accepts every phase
	Seated        bool   // caller must hold some seat
}

// Call is one authorized invocation handed to a HandlerFunc.
type Call struct {
	Conn   Conn
	Player *Player // nil when the caller holds no seat
	Name   string
	Args   []string
}

// HandlerFunc mutates the session. It runs on the session goroutine and must
// validate everything before changing any state.
type HandlerFunc func(s *Session, call *Call) error

type Command struct {
	Guard    Guard
	Args     int
	ReadOnly bool
	Handler  HandlerFunc
}

const maxNameLength = 24

func builtinCommands() map[string]Command {
	return map[string]Command{
		CmdCurrentState: {ReadOnly: true, Handler: cmdCurrentState},
		CmdJoin:         {Args: 1, Handler: cmdJoin},
		CmdName:         {Args: 1, Guard: Guard{Seated: true}, Handler: cmdName},
	}
}

func (s *Session) authorize(g Guard, p *Player) error {
	if g.CurrentPlayer && !s.isCurrent(p) {
		return &CommandError{Kind: ErrNotYourTurn, Message: "It's not your turn"}
	}
	if g.Status != StatusAny && g.Status != s.status {
		return &CommandError{Kind: ErrInvalidPhase, Message: "Invalid game status"}
	}
	if g.Phase != AnyPhase && g.Phase != s.phase {
		return &CommandError{Kind: ErrInvalidPhase, Message: "Invalid playing status"}
	}
	if g.Seated && p == nil {
		return Illegal("You're not a player")
	}
	return nil
}

// dispatch is the single entry point of every command. It returns a
// *CommandError on rejection, in which case no state has changed.
func (s *Session) dispatch(conn Conn, name string, args []string) error {
	cmd, ok := s.commands[name]
	if !ok {
		return &CommandError{Kind: ErrUnknownCommand, Message: "Invalid command " + name, Command: name}
	}

	p := s.playerFor(conn)
	if err := s.authorize(cmd.Guard, p); err != nil {
		return asCommandError(err, name)
	}
	if len(args) != cmd.Args {
		return asCommandError(Illegal(
			"Invalid number of parameters for command %s: %d expected, %d given", name, cmd.Args, len(args),
		), name)
	}

	if err := cmd.Handler(s, &Call{Conn: conn, Player: p, Name: name, Args: args}); err != nil {
		return asCommandError(err, name)
	}

	if !cmd.ReadOnly {
		s.assertCards()
		s.notifyChange()
	}
	return nil
}

func cmdCurrentState(s *Session, call *Call) error {
	s.sendState(call.Conn)
	return nil
}

func cmdJoin(s *Session, call *Call) error {
	name, err := cleanName(call.Args[0])
	if err != nil {
		return err
	}
	if call.Conn.Identity == "" {
		return Illegal("Missing identity")
	}
	s.attach(call.Conn)

	p := call.Player
	if p == nil {
		if s.status != StatusWaiting || len(s.players) >= s.info.Players {
			// full: the caller stays a spectator
			s.sendState(call.Conn)
			return nil
		}
		p = &Player{Token: call.Conn.Identity, Name: name, Seat: len(s.players)}
		s.players = append(s.players, p)
		s.sendOthers([]string{call.Conn.ID}, MsgPlayers, s.names()...)
	} else {
		p.Name = name
	}

	p.bind(call.Conn.ID)
	s.sendState(call.Conn)

	if s.status == StatusWaiting && len(s.players) == s.info.Players {
		s.start()
	}
	return nil
}

func cmdName(s *Session, call *Call) error {
	name, err := cleanName(call.Args[0])
	if err != nil {
		return err
	}
	call.Player.Name = name
	s.Broadcast(MsgPlayers, s.names()...)
	return nil
}

func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", Illegal("Name longer than %d characters", maxNameLength)
	}
	return name, nil
}
