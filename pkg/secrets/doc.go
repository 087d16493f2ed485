// Package secrets encrypts values that must be stored at rest, such as TOTP
// secrets and recovery code hash lists.
//
// A single 32-byte master key (APP_SECRET_KEY, base64) is expanded with HKDF
// into one AES-256-GCM key per purpose. Ciphertexts are base64 strings laid
// out as nonce + encrypted data + tag.
//
//	key, _ := secrets.DecodeKey(cfg.Key)
//	c, _ := secrets.NewCipher(key, secrets.PurposeTOTPSecret)
//	enc, _ := c.EncryptString("JBSWY3DPEHPK3PXP")
//	plain, _ := c.DecryptString(enc)
package secrets
