package storage

import (
	"io"
	"net/http"
	"path"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Signer issues and checks short-lived download tokens for object keys.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

type objectClaims struct {
	Key string `json:"key"`
	jwt.StandardClaims
}

func (s *Signer) Sign(key string, ttl time.Duration) (string, error) {
	claims := objectClaims{
		Key: key,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: s.now().Add(ttl).Unix(),
			Subject:   "object",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns the object key of a valid, unexpired token.
func (s *Signer) Verify(token string) (string, error) {
	var claims objectClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "invalid download token")
	}
	if !parsed.Valid || claims.Subject != "object" || claims.Key == "" {
		return "", errors.New("invalid download token")
	}
	return claims.Key, nil
}

// ServeSigned serves GET /files?token=...
func ServeSigned(store BlobStore, signer *Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := signer.Verify(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "link expired or invalid", http.StatusForbidden)
			return
		}
		f, err := store.Open(r.Context(), key)
		if err != nil {
			glog.Warningf("error opening object %s: %v", key, err)
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Disposition", "inline; filename=\""+path.Base(key)+"\"")
		if _, err := io.Copy(w, f); err != nil {
			glog.Warningf("error streaming object %s: %v", key, err)
		}
	}
}
