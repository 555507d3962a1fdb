package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Basic unit tests

func TestRandomCode_AlphabetAndLength(t *testing.T) {
	code := RandomCode(InviteCodeAlphabet, InviteCodeLength)
	if len(code) != InviteCodeLength {
		t.Fatalf("code length = %d, want %d", len(code), InviteCodeLength)
	}
	for _, ch := range code {
		if !strings.ContainsRune(InviteCodeAlphabet, ch) {
			t.Errorf("code %q contains char %q outside alphabet", code, ch)
		}
	}
}

func TestGenerateUniqueCode_RetriesOnCollision(t *testing.T) {
	attempts := 0
	code, err := GenerateUniqueCode(InviteCodeAlphabet, InviteCodeLength, 10, func(candidate string) (bool, error) {
		attempts++
		// 前两次视为冲突
		return attempts <= 2, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code == "" {
		t.Fatal("expected a code after retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGenerateUniqueCode_Exhaustion(t *testing.T) {
	// 单字符字母表、所有候选都冲突，耗尽重试后必须报错
	attempts := 0
	_, err := GenerateUniqueCode("A", 4, 5, func(candidate string) (bool, error) {
		attempts++
		if candidate != "AAAA" {
			t.Errorf("candidate = %q, want AAAA", candidate)
		}
		return true, nil
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if attempts != 5 {
		t.Errorf("attempts = %d, want 5", attempts)
	}
}

func TestGenerateUniqueCode_ProbeError(t *testing.T) {
	probeErr := errors.New("db down")
	_, err := GenerateUniqueCode(InviteCodeAlphabet, InviteCodeLength, 10, func(candidate string) (bool, error) {
		return false, probeErr
	})
	if !errors.Is(err, probeErr) {
		t.Errorf("err = %v, want probe error", err)
	}
}

func TestGenerateUniqueName_FallbackSuffix(t *testing.T) {
	// 所有名字都冲突时退化为"名字+数字后缀"，不报错
	name, err := GenerateUniqueName(5, func(candidate string) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name == "" {
		t.Fatal("expected fallback name")
	}
	// 后缀应为数字结尾
	last := name[len(name)-1]
	if last < '0' || last > '9' {
		t.Errorf("fallback name %q should end with a digit", name)
	}
}

func TestRandomName_LengthBounds(t *testing.T) {
	for i := 0; i < 200; i++ {
		name := RandomName()
		if len(name) < 2 || len(name) > 8 {
			t.Fatalf("name %q length out of bounds [2,8]", name)
		}
	}
}

// Property-based tests

// **Property: generated codes always satisfy alphabet and length**
func TestProperty_RandomCodeShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("code drawn from alphabet with exact length", prop.ForAll(
		func(length int) bool {
			code := RandomCode(InviteCodeAlphabet, length)
			if len(code) != length {
				return false
			}
			for _, ch := range code {
				if !strings.ContainsRune(InviteCodeAlphabet, ch) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 32),
	))

	properties.Property("unique code never returns an occupied value", prop.ForAll(
		func(numOccupied int) bool {
			occupied := make(map[string]bool)
			code, err := GenerateUniqueCode(InviteCodeAlphabet, InviteCodeLength, 100, func(candidate string) (bool, error) {
				if len(occupied) < numOccupied {
					occupied[candidate] = true
					return true, nil
				}
				return occupied[candidate], nil
			})
			if err != nil {
				return false
			}
			return !occupied[code]
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
