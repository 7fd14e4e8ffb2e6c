package fixture

import "errors"

// ErrInvalidFixture is returned for fixtures that cannot be turned into a seed.
var ErrInvalidFixture = errors.New("invalid fixture")
