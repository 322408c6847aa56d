package security

import (
	"fmt"
	"math/rand/v2"
)

// DefaultAvatarCount is the number of bundled avatars under /images/avatars.
const DefaultAvatarCount = 18

// DefaultAvatars lists the URL paths of the bundled avatars.
func DefaultAvatars() []string {
	out := make([]string, 0, DefaultAvatarCount)
	for i := 1; i <= DefaultAvatarCount; i++ {
		out = append(out, fmt.Sprintf("/images/avatars/avatar%d.png", i))
	}
	return out
}

// RandomAvatar picks one of the bundled avatars.
func RandomAvatar() string {
	return fmt.Sprintf("/images/avatars/avatar%d.png", rand.IntN(DefaultAvatarCount)+1)
}
