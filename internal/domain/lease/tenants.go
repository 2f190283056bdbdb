package lease

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Tenants is always a non-empty ordered list once decoded. The wire form
// may be a single tenant object, which collapses to a list of one.
type Tenants []Tenant

func (t *Tenants) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one Tenant
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*t = Tenants{one}
		return nil
	}

	var many []Tenant
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	if len(many) == 0 {
		return errors.New("tenants: at least one tenant is required")
	}
	*t = many
	return nil
}

// Primary returns the first listed tenant.
func (t Tenants) Primary() Tenant {
	if len(t) == 0 {
		return Tenant{}
	}
	return t[0]
}
