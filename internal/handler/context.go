package handler

type ContextKey string

var (
	RoleCtxKey     ContextKey = "role"
	SubCtxKey      ContextKey = "sub"
	MyInfoCtx      ContextKey = "myInfo"
	StaffInfoCtx   ContextKey = "staffInfo"
	ShiftCtx       ContextKey = "shift"
	AssignmentCtx  ContextKey = "assignment"
	RequestInfoCtx ContextKey = "requestInfo"
)
