package packet

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
)

// GenerateSalt generates a 20-byte random salt for authentication
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, 20)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	// Ensure no null bytes
	for i := range salt {
		if salt[i] == 0 {
			salt[i] = 'a'
		}
	}
	return salt, nil
}

// CalcPassword calculates the mysql_native_password scramble
// scramble = SHA1(salt + SHA1(SHA1(password))) XOR SHA1(password)
func CalcPassword(salt, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}

	// stage1Hash = SHA1(password)
	crypt := sha1.New()
	crypt.Write(password)
	stage1 := crypt.Sum(nil)

	// stage2Hash = SHA1(stage1Hash)
	crypt.Reset()
	crypt.Write(stage1)
	stage2 := crypt.Sum(nil)

	// scrambleHash = SHA1(salt + stage2Hash)
	crypt.Reset()
	crypt.Write(salt)
	crypt.Write(stage2)
	scramble := crypt.Sum(nil)

	// token = stage1Hash XOR scrambleHash
	for i := range scramble {
		scramble[i] ^= stage1[i]
	}
	return scramble
}

// CheckScramble verifies the auth response a client sent against the salt and
// the expected cleartext password.
func CheckScramble(salt, password, authResponse []byte) bool {
	if len(password) == 0 {
		return len(authResponse) == 0
	}
	expected := CalcPassword(salt, password)
	return subtle.ConstantTimeCompare(expected, authResponse) == 1
}
