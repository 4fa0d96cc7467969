package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"ms-reservation/internal/models"
)

// TicketPayload is what a scanned ticket QR code decrypts to.
type TicketPayload struct {
	TicketID string      `json:"ticket_id"`
	EventID  int64       `json:"event_id"`
	UserID   int64       `json:"user_id"`
	SeatType models.Tier `json:"seat_type"`
	Amount   float64     `json:"amount"`
	IssuedAt time.Time   `json:"issued_at"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateTicketQR renders a PNG QR code carrying the encrypted payload of a
// confirmed hold.
func (q *QRGenerator) GenerateTicketQR(hold models.Hold, issuedAt time.Time) ([]byte, error) {
	if hold.Status != models.HoldStatusConfirmed {
		return nil, errors.New("only confirmed tickets have a QR code")
	}

	token, err := q.Encrypt(TicketPayload{
		TicketID: hold.ID,
		EventID:  hold.EventID,
		UserID:   hold.BuyerID,
		SeatType: hold.Tier,
		Amount:   hold.Amount,
		IssuedAt: issuedAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, 256)
}

// Encrypt seals the payload with AES-GCM and returns it URL-safe base64
// encoded, nonce first.
func (q *QRGenerator) Encrypt(payload TicketPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	gcm, err := q.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt, failing on tampered or foreign tokens.
func (q *QRGenerator) Decrypt(token string) (TicketPayload, error) {
	var payload TicketPayload

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return payload, err
	}

	gcm, err := q.aead()
	if err != nil {
		return payload, err
	}
	if len(raw) < gcm.NonceSize() {
		return payload, errors.New("qr token too short")
	}

	data, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return payload, err
	}
	err = json.Unmarshal(data, &payload)
	return payload, err
}

func (q *QRGenerator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
