package web

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"activityboard/internal/domain/status"
)

// flashCookieName holds the last action's status message between redirect and render.
const flashCookieName = "activityboard_flash"

// Flash is the state one action hands to the next page render.
type Flash struct {
	Message  status.Message
	Email    string // signup email kept after a failed attempt
	Activity string // signup selection kept after a failed attempt
}

// FlashCodec signs and encrypts the flash cookie.
type FlashCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewFlashCodec derives hash and block keys from one 32-byte secret.
// PRE: key is 32 bytes
func NewFlashCodec(key []byte, secure bool) *FlashCodec {
	hashKey := sha256.Sum256(append([]byte("flash-hash:"), key...))
	blockKey := sha256.Sum256(append([]byte("flash-block:"), key...))
	sc := securecookie.New(hashKey[:], blockKey[:])
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(status.HideAfter / time.Second))
	return &FlashCodec{sc: sc, secure: secure}
}

// Set replaces any previous flash; the newest message wins.
// PRE: f.Message is valid
// POST: cookie expires with the message's visibility window
func (c *FlashCodec) Set(w http.ResponseWriter, f Flash) error {
	if err := f.Message.Validate(); err != nil {
		return err
	}
	encoded, err := c.sc.Encode(flashCookieName, f)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(status.HideAfter / time.Second),
	})
	return nil
}

// Read returns the flash carried by r while its message is still visible at now.
// POST: tampered, expired or absent cookies yield ok == false
func (c *FlashCodec) Read(r *http.Request, now time.Time) (Flash, bool) {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return Flash{}, false
	}
	var f Flash
	if err := c.sc.Decode(flashCookieName, cookie.Value, &f); err != nil {
		return Flash{}, false
	}
	if !f.Message.Visible(now) {
		return Flash{}, false
	}
	return f, true
}
