package audit

import (
	"time"

	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
)

// Run kinds.
const (
	KindAnalyze  = "analyze"
	KindMitigate = "mitigate"
)

// Run records one analysis or mitigation performed within an audit.
type Run struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Source     string           `json:"source"`
	Method     string           `json:"method,omitempty"`
	Seed       uint64           `json:"seed,omitempty"`
	Rows       int              `json:"rows"`
	OutputRows int              `json:"output_rows,omitempty"`
	Output     string           `json:"output,omitempty"`
	Note       string           `json:"note,omitempty"`
	Before     *fairness.Result `json:"before"`
	After      *fairness.Result `json:"after,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
