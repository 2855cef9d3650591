package engine

// Directive names.
const (
	MsgPlayers           = "players"
	MsgPlayerID          = "player_id"
	MsgBegin             = "begin"
	MsgAnimations        = "animations"
	MsgInitDeck          = "init_deck"
	MsgDrawCard          = "draw_card"
	MsgDrawToTable       = "draw_to_table"
	MsgDrawDiscarded     = "draw_discarded"
	MsgPlayCard          = "play_card"
	MsgTurnStatus        = "turn_status"
	MsgTurn              = "turn"
	MsgDiscardPrevention = "discard_prevention"
	MsgShowWinnerCards   = "show_winner_cards"
	MsgResults           = "results"
	MsgError             = "error"
)

// Built-in command names, available in every game.
const (
	CmdCurrentState = "current_state"
	CmdJoin         = "join"
	CmdName         = "name"
)
