package middleware

import (
	"net/http"
	"strings"
)

// overrideField はHTMLフォームがHTTPメソッドを指定するためのフィールド名。
const overrideField = "_method"

// allowedOverrides はフォームから昇格を許可するメソッド。
var allowedOverrides = map[string]bool{
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// NewMethodOverrideMiddleware はPOSTフォームの_methodフィールドを読み取り、
// リクエストメソッドをPUT/DELETEに書き換えるミドルウェアを返す。
// HTMLフォームはGET/POSTしか送信できないため、
// 記事の更新・削除フォームはこの経路でルーティングされる。
// multipartフォームの場合は書き換えを行わない
// （更新はクエリパラメータ ?_method=PUT を使用する）。
func NewMethodOverrideMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				if m := r.URL.Query().Get(overrideField); allowedOverrides[m] {
					r.Method = m
				} else if ct := r.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
					// ボディの読み込みはurlencodedフォームに限る。
					// multipartボディをここでパースするとアップロードストリームを消費してしまう。
					if m := r.PostFormValue(overrideField); allowedOverrides[m] {
						r.Method = m
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
