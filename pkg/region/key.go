// Package region defines the identity used to match statistics, geometry
// and density data for one administrative region.
package region

// Key identifies a country or a sub-national region of a country.
// An empty State means the key refers to the whole country; it only ever
// matches another key whose State is empty.
type Key struct {
	Country string `json:"country" yaml:"country"`
	State   string `json:"state,omitempty" yaml:"state,omitempty"`
}

// K is a shorthand constructor for Key.
func K(country, state string) Key {
	return Key{Country: country, State: state}
}

// HasState reports whether k names a sub-national region.
func (k Key) HasState() bool {
	return k.State != ""
}

// CountryKey returns the country-level key for k.
func (k Key) CountryKey() Key {
	return Key{Country: k.Country}
}

// Matches reports whether name equals either the country or the state of k.
func (k Key) Matches(name string) bool {
	return name == k.Country || (k.State != "" && name == k.State)
}

func (k Key) String() string {
	if k.State == "" {
		return k.Country
	}
	return k.State + ", " + k.Country
}
