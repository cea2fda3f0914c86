package store

import (
	"encoding/json"

	"financial_review/pkg/core/session"

	"github.com/rotisserie/eris"
)

func encode(s *session.Session) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, eris.New("session id is required")
	}
	data, err := json.Marshal(s)
	return data, eris.Wrapf(err, "marshal session %s", s.ID)
}

func decode(id string, data []byte) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "unmarshal session %s", id)
	}
	return &s, nil
}
