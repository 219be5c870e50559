package enums

import "fmt"

// DesignContext scopes a design approval to a listed item or a custom quote.
type DesignContext string

const (
	DesignContextProduct DesignContext = "product"
	DesignContextQuote   DesignContext = "quote"
)

var validDesignContexts = []DesignContext{
	DesignContextProduct,
	DesignContextQuote,
}

// String implements fmt.Stringer.
func (d DesignContext) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DesignContext.
func (d DesignContext) IsValid() bool {
	for _, candidate := range validDesignContexts {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDesignContext converts raw input into a DesignContext.
func ParseDesignContext(value string) (DesignContext, error) {
	for _, candidate := range validDesignContexts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid design context %q", value)
}
