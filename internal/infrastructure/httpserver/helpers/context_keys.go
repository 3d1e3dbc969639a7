package helpers

import (
	"github.com/labstack/echo/v4"
)

type ctxKey string

const (
	keyOpsSubject ctxKey = "ops_subject"
	keyOpsRole    ctxKey = "ops_role"
)

func SetOpsSubject(c echo.Context, subject string) { c.Set(string(keyOpsSubject), subject) }
func GetOpsSubjectRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyOpsSubject))
	s, ok := v.(string)
	return s, ok
}

func SetOpsRole(c echo.Context, role string) { c.Set(string(keyOpsRole), role) }
func GetOpsRoleRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyOpsRole))
	s, ok := v.(string)
	return s, ok
}
