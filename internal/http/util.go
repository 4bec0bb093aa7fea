package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// maxBodyBytes analyze 请求体上限
const maxBodyBytes = 1 << 20

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// positiveQueryInt 分页参数：缺省、非数字或 <= 0 时取 def
func positiveQueryInt(q url.Values, key string, def int) int {
	i, err := strconv.Atoi(q.Get(key))
	if err != nil || i <= 0 {
		return def
	}
	return i
}

// decodeAnalyzeBody 读取并解码 analyze 请求体，超过 maxBodyBytes 直接拒绝而不是截断
func decodeAnalyzeBody(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return err
	}
	switch {
	case len(body) == 0:
		return errEmptyBody
	case len(body) > maxBodyBytes:
		return errBodyTooLarge
	}
	return json.Unmarshal(body, out)
}
