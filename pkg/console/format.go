package console

import (
	"encoding/json"
	"fmt"
)

// FormatResponse renders a dispatch result as a JSON array:
// ["ok"], ["ok", result] or ["error", message].
func FormatResponse(command string, result any, err error) string {
	if err != nil {
		msg, _ := json.Marshal(err.Error())
		return fmt.Sprintf(`["error", %s]`, msg)
	}
	if result == nil {
		return `["ok"]`
	}
	data, mErr := json.Marshal(result)
	if mErr != nil {
		msg, _ := json.Marshal(fmt.Sprintf("%s: cannot encode result: %v", command, mErr))
		return fmt.Sprintf(`["error", %s]`, msg)
	}
	return fmt.Sprintf(`["ok", %s]`, data)
}
