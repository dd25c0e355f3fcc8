package krypto_test

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/cleanyhq/cleany/internal/krypto"
)

type hashFixture struct {
	hash    krypto.Argon2Hash
	hashStr string
}

// hashFixtures pairs Argon2Hash values with their PHC string representation.
func hashFixtures() map[string]hashFixture {
	salt := []byte("0123456789abcdef")
	digest := []byte("an unrealistic but valid digest!")

	h := krypto.Argon2Hash{
		Variant:     "argon2id",
		Version:     19,
		MemoryKiB:   47104,
		Iterations:  1,
		Parallelism: 1,
		Salt:        salt,
		Hash:        digest,
	}

	min := krypto.Argon2Hash{
		Variant:     "argon2id",
		Version:     19,
		MemoryKiB:   8,
		Iterations:  1,
		Parallelism: 1,
		Salt:        salt,
		Hash:        digest,
	}

	return map[string]hashFixture{
		"interactive params": {
			hash: h,
			hashStr: fmt.Sprintf("$argon2id$v=19$m=47104,t=1,p=1$%s$%s",
				base64.RawStdEncoding.EncodeToString(salt),
				base64.RawStdEncoding.EncodeToString(digest)),
		},
		"min params": {
			hash: min,
			hashStr: fmt.Sprintf("$argon2id$v=19$m=8,t=1,p=1$%s$%s",
				base64.RawStdEncoding.EncodeToString(salt),
				base64.RawStdEncoding.EncodeToString(digest)),
		},
	}
}

func failTextToArgon2Hash() map[string]string {
	return map[string]string{
		"fail, wrong variant":           "$argon2i$v=19$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric version":     "$argon2id$v=abc$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-matching version":    "$argon2id$v=18$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric memory":      "$argon2id$v=19$m=abc,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric iterations":  "$argon2id$v=19$m=47104,t=abc,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric parallelism": "$argon2id$v=19$m=47104,t=1,p=abc$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-base64 salt":         "$argon2id$v=19$m=47104,t=1,p=1$???????????????????????????????????????????$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-base64 hash":         "$argon2id$v=19$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$??????????????????????",
		"fail, missing segments":        "$argon2id$v=19$m=47104,t=1,p=1",
	}
}

func Test_HashArgon2_Match(t *testing.T) {
	t.Run("ok, data matches own hash", func(t *testing.T) {
		data := []byte("hunter2, but longer")

		hash, err := krypto.HashArgon2(data, krypto.MinArgon2Params())
		if err != nil {
			t.Fatalf("failed to hash: %v", err)
		}

		if !hash.MatchBytes(data) {
			t.Errorf("data does not match own hash\n%+v", hash)
		}
	})

	t.Run("ok, other data does not match", func(t *testing.T) {
		hash, err := krypto.HashArgon2([]byte("input one"), krypto.MinArgon2Params())
		if err != nil {
			t.Fatalf("failed to hash: %v", err)
		}

		if hash.MatchBytes([]byte("input two")) {
			t.Errorf("different data matched hash\n%+v", hash)
		}
	})

	t.Run("ok, salts differ between calls", func(t *testing.T) {
		data := []byte("same input")

		hash1 := must(krypto.HashArgon2(data, krypto.MinArgon2Params()))
		hash2 := must(krypto.HashArgon2(data, krypto.MinArgon2Params()))

		if hash1.String() == hash2.String() {
			t.Errorf("two hashes of the same input are equal:\n%s", hash1)
		}

		if !hash1.MatchBytes(data) || !hash2.MatchBytes(data) {
			t.Errorf("hashes do not both match the original input")
		}
	})

	t.Run("ok, zero value never matches", func(t *testing.T) {
		var hash krypto.Argon2Hash
		if hash.MatchBytes([]byte("anything")) {
			t.Errorf("zero value hash matched input")
		}
	})

	t.Run("ok, known vector from the argon2 package", func(t *testing.T) {
		hash := krypto.Argon2Hash{
			Variant:     "argon2id",
			Version:     19,
			MemoryKiB:   64,
			Iterations:  1,
			Parallelism: 1,
			Salt:        []byte("somesalt"),
			Hash:        mustHexDecodeString(t, "655ad15eac652dc59f7170a7332bf49b8469be1fdb9c28bb"),
		}

		if !hash.MatchBytes([]byte("password")) {
			t.Errorf("known vector did not match")
		}
	})
}

func Test_HashArgon2WithKey(t *testing.T) {
	key := must(krypto.ParseKey("90303dfed7994260ea4817a5ca8a392915cd401115b2f97495dadfcbcd14adbf"))

	t.Run("ok, deterministic for same key", func(t *testing.T) {
		data := []byte("info@example.com")

		hash1 := must(krypto.HashArgon2WithKey(data, key, krypto.MinArgon2Params()))
		hash2 := must(krypto.HashArgon2WithKey(data, key, krypto.MinArgon2Params()))

		if hash1.String() != hash2.String() {
			t.Errorf("hashes differ:\n%s\n%s", hash1, hash2)
		}
	})

	t.Run("ok, different key yields different hash", func(t *testing.T) {
		otherKey := must(krypto.ParseKey("2b671594b775f371eab4050b4d58326682df6b1a6cc2e886717b1a26b4d6c45d"))
		data := []byte("info@example.com")

		hash1 := must(krypto.HashArgon2WithKey(data, key, krypto.MinArgon2Params()))
		hash2 := must(krypto.HashArgon2WithKey(data, otherKey, krypto.MinArgon2Params()))

		if hash1.String() == hash2.String() {
			t.Errorf("hashes are equal for different keys:\n%s", hash1)
		}
	})

	t.Run("fail, zero key", func(t *testing.T) {
		_, err := krypto.HashArgon2WithKey([]byte("data"), krypto.Key{}, krypto.MinArgon2Params())
		if !errors.Is(err, krypto.ErrInvalidKey) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", krypto.ErrInvalidKey, err)
		}
	})
}

func Test_Argon2Hash_String(t *testing.T) {
	for name, tc := range hashFixtures() {
		t.Run(name, func(t *testing.T) {
			got := tc.hash.String()
			if got != tc.hashStr {
				t.Errorf("got\n%s\nwant\n%s\n", got, tc.hashStr)
			}
		})
	}
}

func Test_Argon2Hash_MarshalText(t *testing.T) {
	for name, tc := range hashFixtures() {
		t.Run(name, func(t *testing.T) {
			got, err := tc.hash.MarshalText()
			if err != nil {
				t.Fatalf("failed to marshal text: %v", err)
			}

			if string(got) != tc.hashStr {
				t.Errorf("got\n%s\nwant\n%s\n", got, tc.hashStr)
			}
		})
	}
}

func Test_Argon2Hash_ParseArgon2Hash(t *testing.T) {
	for name, tc := range hashFixtures() {
		t.Run(name, func(t *testing.T) {
			got, err := krypto.ParseArgon2Hash(tc.hashStr)
			if err != nil {
				t.Fatalf("failed to parse argon2 hash: %v", err)
			}

			if !reflect.DeepEqual(got, tc.hash) {
				t.Errorf("got\n%#v\nwant\n%#v\n", got, tc.hash)
			}
		})
	}

	for name, txt := range failTextToArgon2Hash() {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseArgon2Hash(txt)
			if !errors.Is(err, krypto.ErrInvalidArgon2Hash) {
				t.Errorf("expected error to match (using errors.Is)\n%v\ngot\n%v\n", krypto.ErrInvalidArgon2Hash, err)
			}
		})
	}
}

func Test_Argon2Hash_UnmarshalText(t *testing.T) {
	for name, tc := range hashFixtures() {
		t.Run(name, func(t *testing.T) {
			var got krypto.Argon2Hash
			err := got.UnmarshalText([]byte(tc.hashStr))
			if err != nil {
				t.Fatalf("failed to unmarshal text to argon2 hash: %v", err)
			}

			if !reflect.DeepEqual(got, tc.hash) {
				t.Errorf("got\n%#v\nwant\n%#v\n", got, tc.hash)
			}
		})
	}

	for name, txt := range failTextToArgon2Hash() {
		t.Run(name, func(t *testing.T) {
			var got krypto.Argon2Hash
			err := got.UnmarshalText([]byte(txt))
			if !errors.Is(err, krypto.ErrInvalidArgon2Hash) {
				t.Errorf("expected errors to match (using errors.Is)\n%v\ngot\n%v\n", krypto.ErrInvalidArgon2Hash, err)
			}
		})
	}
}

func Test_Argon2Hash_Scan(t *testing.T) {
	for name, tc := range hashFixtures() {
		t.Run(name, func(t *testing.T) {
			var got krypto.Argon2Hash
			err := got.Scan(tc.hashStr)
			if err != nil {
				t.Fatalf("failed to scan to argon2 hash: %v", err)
			}

			if !reflect.DeepEqual(got, tc.hash) {
				t.Errorf("got\n%#v\nwant\n%#v\n", got, tc.hash)
			}
		})
	}

	for name, txt := range failTextToArgon2Hash() {
		t.Run(name, func(t *testing.T) {
			var got krypto.Argon2Hash
			err := got.Scan(txt)
			if !errors.Is(err, krypto.ErrInvalidArgon2Hash) {
				t.Errorf("expected errors to match (using errors.Is)\n%v\ngot\n%v\n", krypto.ErrInvalidArgon2Hash, err)
			}
		})
	}

	t.Run("fail, not a string", func(t *testing.T) {
		var got krypto.Argon2Hash
		err := got.Scan(42)
		if err == nil {
			t.Fatalf("expected error to be non-nil")
		}
	})
}

func mustHexDecodeString(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("failed to decode hex string: %v", err)
	}

	return b
}
