package credentials

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("no access token configured")

// Static returns a source that always yields token.
func Static(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// fileSource re-reads the token file whenever its modification time changes,
// so a token rotated by an external login tool is picked up without restart.
type fileSource struct {
	path string

	mu      sync.Mutex
	token   string
	modTime time.Time
}

// FromFile returns a source backed by the token stored at path.
func FromFile(path string) oauth2.TokenSource {
	return &fileSource{path: path}
}

func (s *fileSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat token file %s", s.path)
	}
	if s.token == "" || !info.ModTime().Equal(s.modTime) {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			return nil, errors.Wrapf(err, "read token file %s", s.path)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return nil, errors.Wrapf(ErrNoToken, "token file %s is empty", s.path)
		}
		s.token = token
		s.modTime = info.ModTime()
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// New picks the file source when path is set, falling back to the static token.
func New(token, path string) (oauth2.TokenSource, error) {
	switch {
	case path != "":
		return FromFile(path), nil
	case strings.TrimSpace(token) != "":
		return Static(strings.TrimSpace(token)), nil
	default:
		return nil, ErrNoToken
	}
}
