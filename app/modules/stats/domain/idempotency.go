package statsdomain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// ComputeProcessingHash returns a deterministic hash of the parts of a result that
// aggregates depend on. Two versions of the same result id hash differently when the
// winner, the scores or either roster changed. Roster order within a team is ignored.
func ComputeProcessingHash(r GameResult) string {
	team := func(ids []SessionPlayerID) string {
		sorted := make([]string, len(ids))
		for i, id := range ids {
			sorted[i] = string(id)
		}
		slices.Sort(sorted)
		return strings.Join(sorted, ",")
	}
	score := func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(*v)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "A:%s;B:%s;W:%s;S:%s-%s;", team(r.TeamA), team(r.TeamB), r.WinningTeam, score(r.TeamAScore), score(r.TeamBScore))

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}
