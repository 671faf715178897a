package service

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/ludotheque/ludo-api/internal/cache"
	"github.com/ludotheque/ludo-api/internal/config"
	"github.com/ludotheque/ludo-api/internal/domain"
)

type IdentityRepository interface {
	FindEnabledByEmail(ctx context.Context, email string) (domain.User, error)
	FindEnabledByAPIKey(ctx context.Context, digest string) (domain.User, error)
}

type TokenValidator interface {
	Validate(ctx context.Context, token string) (email string, err error)
}

// VolunteerWindow is the weekly slot during which benevoles keep their
// rights. Hours are [Start, End) in the library timezone.
type VolunteerWindow struct {
	Weekday time.Weekday
	Start   int
	End     int
}

func (w VolunteerWindow) Contains(local time.Time) bool {
	return local.Weekday() == w.Weekday && local.Hour() >= w.Start && local.Hour() < w.End
}

type IdentityService struct {
	repo       IdentityRepository
	idp        TokenValidator
	cache      cache.Store
	ttl        time.Duration
	prefix     string
	production bool
	window     VolunteerWindow
	loc        *time.Location
	now        Clock
}

func NewIdentityService(repo IdentityRepository, idp TokenValidator, store cache.Store, conf *config.AuthConfig, loc *time.Location) *IdentityService {
	return &IdentityService{
		repo:       repo,
		idp:        idp,
		cache:      store,
		ttl:        conf.CacheTTL,
		prefix:     conf.APIKeyPrefix,
		production: conf.Production,
		window: VolunteerWindow{
			Weekday: conf.VolunteerWeekday,
			Start:   conf.VolunteerStartHour,
			End:     conf.VolunteerEndHour,
		},
		loc: loc,
		now: time.Now,
	}
}

// DigestAPIKey is the only form of an API key that is stored.
func DigestAPIKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func credential(authorization string) string {
	authorization = strings.TrimSpace(authorization)
	if len(authorization) > 7 && strings.EqualFold(authorization[:7], "bearer ") {
		return strings.TrimSpace(authorization[7:])
	}

	return authorization
}

// Resolve maps an Authorization header to the caller. Every failure, lookup
// miss or unreachable identity provider included, yields false.
func (s *IdentityService) Resolve(ctx context.Context, authorization string) (domain.Identity, bool) {
	cred := credential(authorization)
	if cred == "" {
		return domain.Identity{}, false
	}

	key := "identity:" + DigestAPIKey(cred)

	var id domain.Identity
	ok, err := s.cache.Get(ctx, key, &id)
	if err != nil {
		zap.L().Warn("identity cache read failed", zap.Error(err))
	}

	if !ok {
		id, ok = s.lookup(ctx, cred)
		if !ok {
			return domain.Identity{}, false
		}

		if err := s.cache.Set(ctx, key, id, s.ttl); err != nil {
			zap.L().Warn("identity cache write failed", zap.Error(err))
		}
	}

	id.Role = s.effectiveRole(id.Role)

	return id, true
}

func (s *IdentityService) lookup(ctx context.Context, cred string) (domain.Identity, bool) {
	var (
		user domain.User
		err  error
	)

	if s.prefix != "" && strings.HasPrefix(cred, s.prefix) {
		user, err = s.repo.FindEnabledByAPIKey(ctx, DigestAPIKey(cred))
		if err != nil {
			zap.L().Debug("api key rejected", zap.Error(err))
			return domain.Identity{}, false
		}
	} else {
		email, err := s.idp.Validate(ctx, cred)
		if err != nil {
			zap.L().Debug("token rejected", zap.Error(err))
			return domain.Identity{}, false
		}

		user, err = s.repo.FindEnabledByEmail(ctx, strings.ToLower(email))
		if err != nil {
			zap.L().Debug("no enabled user for email", zap.String("email", email), zap.Error(err))
			return domain.Identity{}, false
		}
	}

	return domain.Identity{UserID: user.ID, Role: user.Role}, true
}

// effectiveRole downgrades benevoles outside the volunteer window. The rule
// only applies in production.
func (s *IdentityService) effectiveRole(role domain.Role) domain.Role {
	if !s.production || role != domain.RoleBenevole {
		return role
	}
	if s.window.Contains(s.now().In(s.loc)) {
		return role
	}

	return domain.RoleUser
}

func (s *IdentityService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
