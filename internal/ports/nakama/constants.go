package nakama

const (
	// RpcJoinSession is the Nakama RPC id clients call to find or create the
	// shared poem match.
	RpcJoinSession = "join_session"

	// RpcPoemShareToken is the Nakama RPC id that issues share tokens for
	// published poems.
	RpcPoemShareToken = "poem_share_token"

	// RpcGetPoem is the Nakama RPC id that returns a published poem for a
	// valid share token.
	RpcGetPoem = "get_poem"

	// MatchNameCadaver is the authoritative match handler name registered with Nakama.
	MatchNameCadaver = "cadaver_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartSession int64 = 1
	OpAddVerse     int64 = 2
	OpAddRound     int64 = 3
	OpCloseSession int64 = 4
	OpFinalize     int64 = 5
	OpResetSession int64 = 6

	// Server -> Client events
	OpSessionStarted int64 = 101
	OpVerseAdded     int64 = 102
	OpRoundAdded     int64 = 103
	OpSessionClosed  int64 = 104
	OpPoemPublished  int64 = 105
	OpSessionReset   int64 = 106
	OpSessionState   int64 = 107

	OpSessionError int64 = 201
)
