package session

import (
	"context"
)

// remoteSeat is the peer of a hosting session. Shown text is sent with the
// wait flag so the relay keeps reading; a prompt is sent without it and the
// next frame is the answer.
type remoteSeat struct {
	session *Session
	ctx     context.Context
}

func (r *remoteSeat) Show(text string) error {
	return r.session.sendFrame(text, true)
}

func (r *remoteSeat) Ask(prompt string) (string, error) {
	if err := r.session.sendFrame(prompt, false); err != nil {
		return "", err
	}
	f, err := r.session.recv(r.ctx)
	if err != nil {
		return "", err
	}
	return f.Payload, nil
}
