package security

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestChaChaPolyRoundTrip(t *testing.T) {
	senderPriv, senderPub, err := GenCurve25519Key()
	if err != nil {
		t.Fatalf("生成发送方密钥失败: %v", err)
	}
	receiverPriv, receiverPub, err := GenCurve25519Key()
	if err != nil {
		t.Fatalf("生成接收方密钥失败: %v", err)
	}

	salt := []byte("coinpilot-exchange-credentials")
	sharedInfo := []byte("user-42")

	enc, err := NewChaChaPoly(senderPriv, receiverPub, salt, sharedInfo, nil)
	if err != nil {
		t.Fatalf("初始化加密实例失败: %v", err)
	}

	apiSecret := "9F2A1C4D-8E7B-4A3C-B1D0-5E6F7A8B9C0D"
	ciphertext, err := enc.Encrypt([]byte(apiSecret))
	if err != nil {
		t.Fatalf("加密失败: %v", err)
	}
	if bytes.Equal(ciphertext, []byte(apiSecret)) {
		t.Fatal("明文未被加密")
	}

	// 接收方用自己的私钥、发送方的公钥和相同的nonce解密
	dec, err := NewChaChaPoly(receiverPriv, senderPub, salt, sharedInfo, enc.Nonce)
	if err != nil {
		t.Fatalf("初始化解密实例失败: %v", err)
	}
	plaintext, err := dec.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("解密失败: %v", err)
	}
	if string(plaintext) != apiSecret {
		t.Errorf("解密结果不一致: got %s, want %s", plaintext, apiSecret)
	}
	t.Logf("✅ 加解密成功, nonce=%s", hex.EncodeToString(enc.Nonce))
}

func TestChaChaPolyStringHelpers(t *testing.T) {
	priv, pub, err := GenCurve25519Key()
	if err != nil {
		t.Fatalf("生成密钥失败: %v", err)
	}
	c, err := NewChaChaPoly(priv, pub, []byte("salt"), []byte("info"), nil)
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	apiKey := "okx-api-key-0001"
	encoded, err := c.EncryptString(apiKey)
	if err != nil {
		t.Fatalf("EncryptString失败: %v", err)
	}
	got, err := c.DecryptString(encoded)
	if err != nil {
		t.Fatalf("DecryptString失败: %v", err)
	}
	if got != apiKey {
		t.Errorf("got %s, want %s", got, apiKey)
	}
}

func TestChaChaPolyTamperedCiphertext(t *testing.T) {
	priv, pub, err := GenCurve25519Key()
	if err != nil {
		t.Fatalf("生成密钥失败: %v", err)
	}
	c, err := NewChaChaPoly(priv, pub, []byte("salt"), []byte("info"), nil)
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}
	ciphertext, err := c.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("加密失败: %v", err)
	}
	ciphertext[0] ^= 0xff
	if _, err = c.Decrypt(ciphertext); err == nil {
		t.Error("篡改后的密文应当解密失败")
	}
}

func TestNewChaChaPolyEmptyKey(t *testing.T) {
	if _, err := NewChaChaPoly(nil, nil, nil, nil, nil); err == nil {
		t.Error("空密钥应当返回错误")
	}
}
