package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID = "user_id"

	// Entities
	FieldFollowerID = "follower_id"
	FieldFolloweeID = "followee_id"
	FieldPostID     = "post_id"
	FieldCommentID  = "comment_id"
	FieldNodePath   = "node_path"

	// Service
	FieldService = "service"
)
