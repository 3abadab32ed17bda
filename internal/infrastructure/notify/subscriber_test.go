package notify

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"io"
	"testing"

	alertDomain "price-alert/internal/domain/alert"

	"golang.org/x/crypto/hkdf"
)

// aes128gcm header：salt(16) + rs(4) + idlen(1) + keyid(65)。
const (
	testSaltLen   = 16
	testHeaderLen = testSaltLen + 4 + 1 + 65
)

// testClient 模擬瀏覽器端的訂閱金鑰。
type testClient struct {
	priv *ecdh.PrivateKey
	auth []byte
}

func newTestClient(t *testing.T) testClient {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	_, _ = rand.Read(auth)
	return testClient{priv: priv, auth: auth}
}

func (c testClient) keys() alertDomain.SubscriptionKeys {
	return alertDomain.SubscriptionKeys{
		P256dh: base64.RawURLEncoding.EncodeToString(c.priv.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(c.auth),
	}
}

// decrypt 以 RFC 8291 接收端流程解開 aes128gcm body，去掉 padding 後回傳原文。
func (c testClient) decrypt(t *testing.T, body []byte) []byte {
	t.Helper()
	if len(body) < testHeaderLen {
		t.Fatalf("body too short: %d", len(body))
	}
	salt := body[:testSaltLen]
	if rs := binary.BigEndian.Uint32(body[testSaltLen : testSaltLen+4]); rs != 4096 {
		t.Fatalf("unexpected record size %d", rs)
	}
	idLen := int(body[testSaltLen+4])
	asPubRaw := body[testSaltLen+5 : testSaltLen+5+idLen]
	ciphertext := body[testSaltLen+5+idLen:]

	asPub, err := ecdh.P256().NewPublicKey(asPubRaw)
	if err != nil {
		t.Fatalf("parse sender key: %v", err)
	}
	shared, err := c.priv.ECDH(asPub)
	if err != nil {
		t.Fatal(err)
	}

	uaPub := c.priv.PublicKey().Bytes()
	keyInfo := append([]byte("WebPush: info\x00"), uaPub...)
	keyInfo = append(keyInfo, asPubRaw...)
	ikm := hkdfExpand(t, hkdf.Extract(sha256.New, shared, c.auth), keyInfo, 32)
	prk := hkdf.Extract(sha256.New, ikm, salt)
	cek := hkdfExpand(t, prk, []byte("Content-Encoding: aes128gcm\x00"), 16)
	nonce := hkdfExpand(t, prk, []byte("Content-Encoding: nonce\x00"), 12)

	block, _ := aes.NewCipher(cek)
	gcm, _ := cipher.NewGCM(block)
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	plain = bytes.TrimRight(plain, "\x00")
	if len(plain) == 0 || plain[len(plain)-1] != 0x02 {
		t.Fatalf("missing last-record delimiter")
	}
	return plain[:len(plain)-1]
}

func hkdfExpand(t *testing.T, prk, info []byte, n int) []byte {
	t.Helper()
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), out); err != nil {
		t.Fatal(err)
	}
	return out
}
