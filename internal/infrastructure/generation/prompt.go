package generation

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/leasegen/backend/internal/domain/lease"
)

// DefaultSystemPrompt describes the reply shape expected from every backend.
const DefaultSystemPrompt = `You draft residential lease agreements.

You receive the landlord's lease terms as a JSON object. Reply with ONE JSON object and nothing else.
The reply must contain every field of the input with the same names and values, normalized as follows:
- "tenants" is always an array of {"name", "email"?} objects.
- Dates stay in YYYY-MM-DD format; money stays a plain non-negative number.
- Enumerated fields keep their literal values.

Add these fields:
- "clauses": a non-empty array of {"heading": string, "body": string} covering parties, premises, term,
  rent, security deposit, utilities, late fees, pets, house rules, notices, signatures, and any
  provisions the jurisdiction requires.
- "disclaimers": an array of strings with jurisdiction-specific disclosures and a statement that
  the document is not legal advice.

Do not invent parties, amounts or dates that are not in the input.`

// UserPrompt renders the input as the user message. The challenge token
// never leaves the process.
func UserPrompt(input *lease.Input) (string, error) {
	data, err := json.MarshalIndent(input.Terms, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode lease input")
	}
	return string(data), nil
}
