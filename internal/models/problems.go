package models

// Problem tracker actions accepted by POST /problems.
const (
	ProblemActionCreate      = "create"
	ProblemActionUpdate      = "update"
	ProblemActionDelete      = "delete"
	ProblemActionAnalyze     = "analyze"
	ProblemActionSearch      = "search"
	ProblemActionGetInsights = "get-insights"
)

// ProblemActions lists every valid action, in documentation order.
var ProblemActions = []string{
	ProblemActionCreate,
	ProblemActionUpdate,
	ProblemActionDelete,
	ProblemActionAnalyze,
	ProblemActionSearch,
	ProblemActionGetInsights,
}

// ProblemsRequest is the body of POST /problems. Data is action specific and passed through.
type ProblemsRequest struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

// ProblemFilters narrows GET /problems.
type ProblemFilters struct {
	Area     *string `json:"area"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

// ProblemsWebhookRequest is what the tracker proxy sends to the problems workflow.
type ProblemsWebhookRequest struct {
	Action   string                  `json:"action"`
	Data     map[string]interface{}  `json:"data,omitempty"`
	Filters  *ProblemFilters         `json:"filters,omitempty"`
	Metadata ProblemsWebhookMetadata `json:"metadata"`
}

// ProblemsWebhookMetadata describes the request context for the problems workflow.
type ProblemsWebhookMetadata struct {
	Timestamp   string  `json:"timestamp"`
	AppName     string  `json:"appName"`
	Version     string  `json:"version"`
	UserID      *string `json:"userId,omitempty"`
	RequestType string  `json:"requestType,omitempty"`
}

// ProblemsResponse is the action-shaped reply of the problems endpoints.
// Only the fields relevant to the action are populated.
type ProblemsResponse struct {
	Success    bool        `json:"success"`
	Action     string      `json:"action"`
	Timestamp  string      `json:"timestamp"`
	Message    string      `json:"message,omitempty"`
	Problem    interface{} `json:"problem,omitempty"`
	Analysis   interface{} `json:"analysis,omitempty"`
	Results    interface{} `json:"results,omitempty"`
	Total      *float64    `json:"total,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Insights   interface{} `json:"insights,omitempty"`
	Statistics interface{} `json:"statistics,omitempty"`
}
