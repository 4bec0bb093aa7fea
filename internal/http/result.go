package httpapi

// Result clinical API 的响应外壳
//
// 用于 latest / summaries / healthz 以及所有错误响应；analyze 成功时直接返回
// CareSummaryOutput，不套外壳（浏览器端按 summary 结构渲染）。
// code 为 2000 表示成功，为 -1 表示失败，具体 HTTP 状态码另见响应头；
// type 取 "success" 或 "error"，失败时 result 为 null。
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

// Ok 成功外壳，message 固定为 "ok"
func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

// Fail 错误外壳；message 直接给调用方看，不要带内部错误细节
func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message}
}
