package packet

import (
	"bytes"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if len(salt) != 20 {
		t.Errorf("salt length = %d, want 20", len(salt))
	}
	for i, b := range salt {
		if b == 0 {
			t.Errorf("salt byte %d is zero, must not contain NUL", i)
		}
	}
}

func TestCalcPassword_EmptyPassword(t *testing.T) {
	if got := CalcPassword(testSalt(), nil); len(got) != 0 {
		t.Errorf("CalcPassword(empty) = %x, want empty", got)
	}
}

func TestCalcPassword_Deterministic(t *testing.T) {
	a := CalcPassword(testSalt(), []byte("secret"))
	b := CalcPassword(testSalt(), []byte("secret"))
	if !bytes.Equal(a, b) {
		t.Error("same salt and password must produce the same scramble")
	}
	if len(a) != 20 {
		t.Errorf("scramble length = %d, want 20", len(a))
	}
	c := CalcPassword(testSalt(), []byte("other"))
	if bytes.Equal(a, c) {
		t.Error("different passwords must produce different scrambles")
	}
}

func TestCheckScramble(t *testing.T) {
	salt := testSalt()
	resp := CalcPassword(salt, []byte("secret"))

	if !CheckScramble(salt, []byte("secret"), resp) {
		t.Error("correct password rejected")
	}
	if CheckScramble(salt, []byte("wrong"), resp) {
		t.Error("wrong password accepted")
	}
	if CheckScramble(salt, []byte("secret"), nil) {
		t.Error("empty response accepted for non-empty password")
	}
	if !CheckScramble(salt, nil, nil) {
		t.Error("empty response rejected for empty password")
	}
}
