package data

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gamehall/monopoly/pkg/codes"
)

// maxAdviceBody caps what we accept back from the advisor.
const maxAdviceBody = 64 << 10

// Advice posts the snapshot to the advisory backend and returns its opaque
// reply. Callers run this off the actor loop; the client timeout is the only
// time the advisor gets.
func (r *gameRepo) Advice(ctx context.Context, snapshot []byte) ([]byte, error) {
	if r.data.http == nil || r.data.advisory == nil || r.data.advisory.Endpoint == "" {
		return nil, codes.ErrAdvisory
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.data.advisory.Endpoint, bytes.NewReader(snapshot))
	if err != nil {
		return nil, codes.ErrAdvisory.WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.data.http.Do(req)
	if err != nil {
		return nil, codes.ErrAdvisory.WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, codes.ErrAdvisory
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAdviceBody))
	if err != nil {
		return nil, codes.ErrAdvisory.WithCause(err)
	}
	return body, nil
}
