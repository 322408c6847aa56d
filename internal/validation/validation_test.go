package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret1", false},
		{"Exactly Min Length", "abcdef", false},
		{"Exactly Max Length", strings.Repeat("a", 72), false},
		{"Too Short", "abc", true},
		{"Too Long", strings.Repeat("a", 73), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("alice_01"))
	assert.NoError(t, ValidateUsername("张三"))
	assert.NoError(t, ValidateUsername(strings.Repeat("字", 50)))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("has space"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 51)))
}

func TestValidateNickname(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateNickname("Campus Star"))
	assert.Error(t, ValidateNickname("   "))
	assert.Error(t, ValidateNickname(strings.Repeat("n", 101)))
	assert.NoError(t, ValidateNickname(strings.Repeat("n", 94)+`"`))
	assert.Error(t, ValidateNickname(strings.Repeat("n", 95)+`"`))
}

func TestValidateUsername_CountsEscapedLength(t *testing.T) {
	t.Parallel()
	// &lt; and &gt; are four characters each.
	assert.NoError(t, ValidateUsername(strings.Repeat("a", 42)+"<>"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 43)+"<>"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 47)+"<>'"))
	assert.NoError(t, ValidateUsername(strings.Repeat("a", 49)+"&"))
}

func TestValidateEmailAndPhone(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("a@b.cn"))
	assert.Error(t, ValidateEmail("no-at-sign.cn"))
	assert.Error(t, ValidateEmail("a b@c.d"))

	assert.NoError(t, ValidatePhone("13812345678"))
	assert.Error(t, ValidatePhone("12812345678"))
	assert.Error(t, ValidatePhone("1381234567"))
}

func TestValidateGender(t *testing.T) {
	t.Parallel()
	for _, g := range []string{"", "male", "female", "other"} {
		assert.NoError(t, ValidateGender(g))
	}
	assert.Error(t, ValidateGender("unknown"))
}

func TestValidatePostContent_Boundaries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		length  int
		wantErr bool
	}{
		{0, true},
		{4, true},
		{5, false},
		{500, false},
		{501, true},
	}

	for _, tt := range tests {
		err := ValidatePostContent(strings.Repeat("好", tt.length))
		if tt.wantErr {
			assert.Error(t, err, "length %d", tt.length)
		} else {
			assert.NoError(t, err, "length %d", tt.length)
		}
	}
}
