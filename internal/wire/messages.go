package wire

// Status codes carried in a Response. They follow HTTP semantics so the HTTP
// transport can reuse them directly.
const (
	StatusOK           = 200
	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusNotFound     = 404
	StatusConflict     = 409
	StatusInternal     = 500
)

// Request is the envelope of every client call.
type Request struct {
	Token   string
	Payload []byte
}

func (m *Request) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.Token)
	return appendBytes(b, 2, m.Payload)
}

func (m *Request) decode(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Token = f.str()
		case 2:
			m.Payload = f.bytes
		}
		return nil
	})
}

// Response is the envelope of every server reply.
type Response struct {
	Status  int
	Error   string
	Payload []byte
}

func (m *Response) appendTo(b []byte) []byte {
	b = appendInt(b, 1, m.Status)
	b = appendString(b, 2, m.Error)
	return appendBytes(b, 3, m.Payload)
}

func (m *Response) decode(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Status = f.int()
		case 2:
			m.Error = f.str()
		case 3:
			m.Payload = f.bytes
		}
		return nil
	})
}

// OK reports whether the call succeeded.
func (m *Response) OK() bool {
	return m.Status == StatusOK
}

// Credentials is the payload of a login call.
type Credentials struct {
	Username string
	Password string
}

func (m *Credentials) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.Username)
	return appendString(b, 2, m.Password)
}

func (m *Credentials) decode(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Username = f.str()
		case 2:
			m.Password = f.str()
		}
		return nil
	})
}

// Session is returned by a successful login.
type Session struct {
	Token string
}

func (m *Session) appendTo(b []byte) []byte {
	return appendString(b, 1, m.Token)
}

func (m *Session) decode(b []byte) error {
	return eachField(b, func(f field) error {
		if f.num == 1 {
			m.Token = f.str()
		}
		return nil
	})
}

// JoinRequest names the game to join, either by id or by the username of a
// player already seated in it.
type JoinRequest struct {
	GameID   string
	Username string
}

func (m *JoinRequest) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.GameID)
	return appendString(b, 2, m.Username)
}

func (m *JoinRequest) decode(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.GameID = f.str()
		case 2:
			m.Username = f.str()
		}
		return nil
	})
}

// Seat is the game and player a session is bound to.
type Seat struct {
	GameID   string
	PlayerID uint64
}

func (m *Seat) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.GameID)
	return appendUint(b, 2, m.PlayerID)
}

func (m *Seat) decode(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.GameID = f.str()
		case 2:
			m.PlayerID = f.v
		}
		return nil
	})
}

// ChangesRequest asks for every change after a sequence number.
type ChangesRequest struct {
	After uint64
}

func (m *ChangesRequest) appendTo(b []byte) []byte {
	return appendUint(b, 1, m.After)
}

func (m *ChangesRequest) decode(b []byte) error {
	return eachField(b, func(f field) error {
		if f.num == 1 {
			m.After = f.v
		}
		return nil
	})
}

// ActionResult reports whether a submitted action was applied.
type ActionResult struct {
	Accepted bool
	Reason   string
	LastSeq  uint64
}

func (m *ActionResult) appendTo(b []byte) []byte {
	b = appendBool(b, 1, m.Accepted)
	b = appendString(b, 2, m.Reason)
	return appendUint(b, 3, m.LastSeq)
}

func (m *ActionResult) decode(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Accepted = f.bool()
		case 2:
			m.Reason = f.str()
		case 3:
			m.LastSeq = f.v
		}
		return nil
	})
}

// Empty is a message with no fields.
type Empty struct{}

func (*Empty) appendTo(b []byte) []byte { return b }
func (*Empty) decode([]byte) error      { return nil }

// FeedEvent is pushed on the change feed after every accepted action.
type FeedEvent struct {
	GameID  string
	LastSeq uint64
}

func (m *FeedEvent) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.GameID)
	return appendUint(b, 2, m.LastSeq)
}

func (m *FeedEvent) decode(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.GameID = f.str()
		case 2:
			m.LastSeq = f.v
		}
		return nil
	})
}
