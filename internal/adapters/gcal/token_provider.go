package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenProvider supplies a credential for calendar calls
type TokenProvider interface {
	// TokenSource returns a valid token source or an error wrapping core.ErrNoCredential
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)

	// HasToken reports whether a cached credential exists
	HasToken() bool
}

// FileTokenProvider reads a cached OAuth token from disk and refreshes it when expired
type FileTokenProvider struct {
	credentialsFile string
	tokenFile       string
	scopes          []string
	logger          *zap.Logger
	mu              sync.Mutex
}

// NewFileTokenProvider creates a new file-based token provider
func NewFileTokenProvider(credentialsFile, tokenFile string, scopes []string, logger *zap.Logger) *FileTokenProvider {
	return &FileTokenProvider{
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
		scopes:          scopes,
		logger:          logger,
	}
}

// HasToken checks if the token file exists
func (p *FileTokenProvider) HasToken() bool {
	_, err := os.Stat(p.tokenFile)
	return err == nil
}

// TokenSource loads the cached token and validates it, refreshing if needed
func (p *FileTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf, err := p.oauthConfig()
	if err != nil {
		return nil, err
	}

	token, err := p.loadToken()
	if err != nil {
		return nil, err
	}

	ts := &persistingTokenSource{
		base:     conf.TokenSource(ctx, token),
		provider: p,
		last:     token.AccessToken,
	}

	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("%w: cached token is invalid: %w", core.ErrNoCredential, err)
	}

	return ts, nil
}

// Authorize runs the consent flow through a loopback redirect and caches the token
func (p *FileTokenProvider) Authorize(ctx context.Context, out io.Writer) error {
	conf, err := p.oauthConfig()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen for OAuth redirect: %w", err)
	}
	conf.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if msg := query.Get("error"); msg != "" {
			fmt.Fprintln(w, "Authorization failed, you can close this window.")
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", msg):
			default:
			}
			return
		}
		fmt.Fprintln(w, "Authorization complete, you can close this window.")
		select {
		case codeCh <- query.Get("code"):
		default:
		}
	})}
	go srv.Serve(ln)
	defer srv.Close()

	fmt.Fprintf(out, "Open the following URL in your browser to authorize calendar access:\n\n%s\n\n",
		conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if err := p.saveToken(token); err != nil {
		return err
	}

	p.logger.Info("Calendar token saved", zap.String("token_file", p.tokenFile))
	return nil
}

func (p *FileTokenProvider) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(p.credentialsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: client secret file %s not found", core.ErrNoCredential, p.credentialsFile)
		}
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, p.scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file: %w", err)
	}
	return conf, nil
}

func (p *FileTokenProvider) loadToken() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.tokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: token file %s not found", core.ErrNoCredential, p.tokenFile)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token file: %w", core.ErrNoCredential, err)
	}
	return &token, nil
}

func (p *FileTokenProvider) saveToken(token *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if dir := filepath.Dir(p.tokenFile); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(p.tokenFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// persistingTokenSource writes refreshed tokens back to the token file
type persistingTokenSource struct {
	base     oauth2.TokenSource
	provider *FileTokenProvider
	mu       sync.Mutex
	last     string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.provider.saveToken(token); err != nil {
			s.provider.logger.Warn("Failed to persist refreshed token", zap.Error(err))
		}
	}
	return token, nil
}

// StaticTokenProvider serves a fixed token source
type StaticTokenProvider struct {
	source oauth2.TokenSource
}

// NewStaticTokenProvider wraps a token source, typically for tests or service accounts
func NewStaticTokenProvider(source oauth2.TokenSource) *StaticTokenProvider {
	return &StaticTokenProvider{source: source}
}

// TokenSource returns the wrapped source
func (p *StaticTokenProvider) TokenSource(_ context.Context) (oauth2.TokenSource, error) {
	if p.source == nil {
		return nil, core.ErrNoCredential
	}
	return p.source, nil
}

// HasToken reports whether a source is configured
func (p *StaticTokenProvider) HasToken() bool {
	return p.source != nil
}
