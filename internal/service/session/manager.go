// Package session owns the authoritative credential pair and exposes the
// authorized-call capability the rest of the client depends on. Renewal is
// hidden from callers: a 401 triggers exactly one silent renew and one retry.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/adilkhan-s/bikerent-client/internal/adapter/credstore"
	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
	"github.com/adilkhan-s/bikerent-client/internal/transport"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
	wrap "github.com/adilkhan-s/bikerent-client/pkg/logger/wrapper"
	"github.com/adilkhan-s/bikerent-client/pkg/metrics"
)

// Renewal triggers, used as metric labels.
const (
	triggerTimer    = "timer"
	triggerReactive = "reactive_401"
	triggerRestore  = "restore"
	triggerManual   = "manual"
)

type Manager struct {
	api   API
	store Store
	log   logger.Logger

	renewInterval time.Duration

	mu      sync.RWMutex
	session *models.Session
	creds   models.Credentials

	// Single-flight group for renewals: the background timer and a reactive
	// 401 firing together must share one token exchange, or the second call
	// would consume a refresh credential the first already rotated.
	sf singleflight.Group

	timerCancel context.CancelFunc
}

func NewManager(api API, store Store, renewInterval time.Duration, log logger.Logger) *Manager {
	return &Manager{
		api:           api,
		store:         store,
		renewInterval: renewInterval,
		log:           log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	IsCustomer  bool   `json:"is_customer"`
	Verified    bool   `json:"verified"`
}

type tokenResponse struct {
	Access  string           `json:"access"`
	Refresh string           `json:"refresh"`
	User    *identityPayload `json:"user,omitempty"`
}

// Login exchanges credentials at the identity endpoint and installs the
// resulting session. Failure mapping: 401 → InvalidCredentials, 400/422 with
// a field map → Validation, 5xx → ServerError, no response → Network.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.Session, error) {
	ctx = wrap.WithAction(ctx, types.ActionLogin)

	var resp tokenResponse
	err := m.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{Email: email, Password: password},
	}, "", &resp)
	if err != nil {
		return nil, m.loginError(ctx, err)
	}

	creds := credentialsFrom(resp)
	sess, err := m.install(ctx, creds)
	if err != nil {
		return nil, &types.AuthError{Kind: types.AuthServerError, Err: err}
	}

	m.log.Info(ctx, "logged in", "user_id", sess.UserID)
	return sess, nil
}

func (m *Manager) loginError(ctx context.Context, err error) error {
	apiErr, ok := transport.AsAPIError(err)
	if !ok {
		m.log.Warn(ctx, "login request failed without response")
		return &types.AuthError{Kind: types.AuthNetwork, Err: err}
	}

	switch {
	case apiErr.Status == http.StatusUnauthorized:
		return &types.AuthError{Kind: types.AuthInvalidCredentials, Err: err}
	case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		return &types.AuthError{Kind: types.AuthValidation, Fields: apiErr.Fields, Err: err}
	case apiErr.Status >= 500:
		return &types.AuthError{Kind: types.AuthServerError, Err: err}
	default:
		return &types.AuthError{Kind: types.AuthServerError, Err: err}
	}
}

// Logout clears the credential pair and every derived identity field.
// Idempotent: logging out twice is a no-op the second time.
func (m *Manager) Logout(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionLogout)
	m.clear(ctx)
	return nil
}

// Restore runs once at process start. It rebuilds the session from the
// persisted credential record, silently renewing when the access credential
// has expired. Any definitive failure behaves as a logout: nil session,
// fully cleared store.
func (m *Manager) Restore(ctx context.Context) (*models.Session, error) {
	ctx = wrap.WithAction(ctx, types.ActionRestoreSession)

	stored, err := m.store.Load()
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	sess, err := m.install(ctx, *stored)
	if err != nil {
		// Undecodable credential: treat as logout.
		m.log.Warn(ctx, "stored access credential is not decodable, clearing session")
		m.clear(ctx)
		return nil, nil
	}

	if sess.Expired(time.Now()) {
		if ok, _ := m.renew(ctx, triggerRestore); !ok {
			m.clear(ctx)
			return nil, nil
		}
		sess = m.Session()
	}

	m.log.Info(ctx, "session restored", "user_id", sess.UserID)
	return sess, nil
}

// Renew exchanges the refresh credential for a new access credential.
// Returns false and leaves state unchanged when no refresh credential is
// stored or the exchange is rejected. Safe to call concurrently with
// in-flight authorized requests.
func (m *Manager) Renew(ctx context.Context) bool {
	ok, _ := m.renew(ctx, triggerManual)
	return ok
}

type renewOutcome struct {
	ok bool
	// definitive means the exchange was rejected by the backend, as opposed
	// to a transient network failure, and the refresh credential is dead.
	definitive bool
}

func (m *Manager) renew(ctx context.Context, trigger string) (bool, bool) {
	ctx = wrap.WithAction(ctx, types.ActionRenewCredential)

	v, _, _ := m.sf.Do("renew", func() (any, error) {
		outcome := m.renewExchange(ctx)
		// Recorded inside the flight so coalesced triggers count one exchange.
		metrics.RecordRenewal(trigger, outcome.ok)
		return outcome, nil
	})
	outcome := v.(renewOutcome)

	return outcome.ok, outcome.definitive
}

func (m *Manager) renewExchange(ctx context.Context) renewOutcome {
	m.mu.RLock()
	refresh := m.creds.RefreshToken
	m.mu.RUnlock()

	if refresh == "" {
		return renewOutcome{ok: false, definitive: true}
	}

	var resp tokenResponse
	err := m.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   map[string]string{"refresh": refresh},
	}, "", &resp)
	if err != nil {
		if apiErr, ok := transport.AsAPIError(err); ok && apiErr.Status >= 400 && apiErr.Status < 500 {
			m.log.Warn(ctx, "refresh credential rejected", "status", apiErr.Status)
			return renewOutcome{ok: false, definitive: true}
		}
		m.log.Warn(ctx, "credential renewal failed transiently")
		return renewOutcome{ok: false, definitive: false}
	}

	claims, err := decodeAccessClaims(resp.Access)
	if err != nil {
		m.log.Error(ctx, "renewed access credential is not decodable", err)
		return renewOutcome{ok: false, definitive: true}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The session may have been torn down while the exchange was in flight
	// (logout racing a background tick). A late result is discarded, not
	// applied to cleared state.
	if m.session == nil {
		return renewOutcome{ok: false, definitive: true}
	}

	m.creds.AccessToken = resp.Access
	if resp.Refresh != "" {
		// Rotating backends return a replacement refresh credential.
		m.creds.RefreshToken = resp.Refresh
	}
	m.session.AccessExpiresAt = claims.ExpiresAt

	if err := m.store.Save(credsCopy(m.creds)); err != nil {
		m.log.Error(ctx, "failed to persist renewed credentials", err)
	}

	m.log.Debug(ctx, "access credential renewed", "expires_at", claims.ExpiresAt)
	return renewOutcome{ok: true, definitive: false}
}

// Do attaches the current access credential to the request. On a 401 it
// performs exactly one renewal and re-issues the request once with the
// credential as it stands after the renewal completed; if renewal fails
// definitively the session is cleared and SessionExpired is surfaced.
func (m *Manager) Do(ctx context.Context, req transport.Request, out any) error {
	ctx = wrap.WithAction(ctx, types.ActionAuthorizedCall)

	token := m.accessToken()
	if token == "" {
		return &types.AuthError{Kind: types.AuthSessionExpired, Err: types.ErrNoSession}
	}

	err := m.api.Do(ctx, req, token, out)
	if err == nil {
		return nil
	}

	apiErr, ok := transport.AsAPIError(err)
	if !ok || !apiErr.Unauthorized() {
		return err
	}

	if ok, _ := m.renew(ctx, triggerReactive); !ok {
		m.clear(ctx)
		return &types.AuthError{Kind: types.AuthSessionExpired, Err: err}
	}

	return m.api.Do(ctx, req, m.accessToken(), out)
}

// Session returns a value snapshot of the current session, or nil when
// unauthenticated. Callers never receive a live mutable reference.
func (m *Manager) Session() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return nil
	}
	snapshot := *m.session
	return &snapshot
}

// UpdateIdentity applies a server-confirmed profile update to the identity
// fields of the session. Credentials are untouched.
func (m *Manager) UpdateIdentity(ctx context.Context, username, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}

	m.session.Username = username
	m.session.Email = email
	m.creds.Username = username
	m.creds.Email = email

	if err := m.store.Save(credsCopy(m.creds)); err != nil {
		m.log.Error(ctx, "failed to persist identity update", err)
	}
}

// BearerToken exposes the current access credential for transports that
// cannot go through Do, e.g. the websocket handshake.
func (m *Manager) BearerToken() string {
	return m.accessToken()
}

func (m *Manager) accessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.AccessToken
}

// install decodes the access credential, persists the record, publishes the
// session and starts the background renewal timer.
func (m *Manager) install(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	claims, err := decodeAccessClaims(creds.AccessToken)
	if err != nil {
		return nil, err
	}

	sess := sessionFrom(creds, claims)

	m.mu.Lock()
	m.creds = creds
	m.session = &sess
	if err := m.store.Save(credsCopy(m.creds)); err != nil {
		m.log.Error(ctx, "failed to persist credentials", err)
	}
	m.startRenewalTimerLocked()
	m.mu.Unlock()

	metrics.SessionActiveGauge.Set(1)

	snapshot := sess
	return &snapshot, nil
}

// clear destroys the session: timer stopped, store wiped, state zeroed.
func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	if m.timerCancel != nil {
		m.timerCancel()
		m.timerCancel = nil
	}
	hadSession := m.session != nil
	m.session = nil
	m.creds = models.Credentials{}
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.log.Error(ctx, "failed to clear credential store", err)
	}

	metrics.SessionActiveGauge.Set(0)

	if hadSession {
		m.log.Info(ctx, "session cleared")
	}
}

// startRenewalTimerLocked launches the preemptive renewal loop. The interval
// is configured shorter than the access credential lifetime so foreground
// requests rarely hit the reactive 401 path. Caller holds m.mu.
func (m *Manager) startRenewalTimerLocked() {
	if m.timerCancel != nil {
		// Already running; install after renew keeps the existing loop.
		return
	}
	if m.renewInterval <= 0 {
		return
	}

	timerCtx, cancel := context.WithCancel(context.Background())
	m.timerCancel = cancel

	go func() {
		ticker := time.NewTicker(m.renewInterval)
		defer ticker.Stop()

		for {
			select {
			case <-timerCtx.Done():
				return
			case <-ticker.C:
				ok, definitive := m.renew(timerCtx, triggerTimer)
				if !ok && definitive {
					// Refresh credential is dead; keeping a doomed session
					// around only delays the SessionExpired surface.
					m.clear(timerCtx)
					return
				}
			}
		}
	}()
}

func sessionFrom(creds models.Credentials, claims *accessClaims) models.Session {
	sess := models.Session{
		UserID:          claims.UserID,
		Username:        creds.Username,
		Email:           creds.Email,
		Role:            types.UserRole(creds.Role),
		IsStaff:         creds.IsStaff,
		IsSuperuser:     creds.IsSuperuser,
		IsCustomer:      creds.IsCustomer,
		Verified:        creds.Verified,
		AccessExpiresAt: claims.ExpiresAt,
	}

	// Claims win over denormalized store fields when both are present.
	if claims.Username != "" {
		sess.Username = claims.Username
	}
	if claims.Email != "" {
		sess.Email = claims.Email
	}
	if claims.Role != "" {
		sess.Role = types.UserRole(claims.Role)
	}

	return sess
}

func credentialsFrom(resp tokenResponse) models.Credentials {
	creds := models.Credentials{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
	}
	if resp.User != nil {
		creds.UserID = resp.User.ID
		creds.Username = resp.User.Username
		creds.Email = resp.User.Email
		creds.Role = resp.User.Role
		creds.IsStaff = resp.User.IsStaff
		creds.IsSuperuser = resp.User.IsSuperuser
		creds.IsCustomer = resp.User.IsCustomer
		creds.Verified = resp.User.Verified
	}
	return creds
}

func credsCopy(creds models.Credentials) *models.Credentials {
	c := creds
	return &c
}
