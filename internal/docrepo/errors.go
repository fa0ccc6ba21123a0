package docrepo

import (
	"fmt"
	"strings"

	pkgerrors "doc-repository/pkg/errors"
)

// MultipleObjectsFoundError 同一 logical id 定位到多个物理对象：仓库数据已不一致，无法自动判断哪份有效
type MultipleObjectsFoundError struct {
	ID   string
	Keys []string
}

func (e *MultipleObjectsFoundError) Error() string {
	return fmt.Sprintf("multiple objects found for id %q: %s", e.ID, strings.Join(e.Keys, ", "))
}

// Is 使 errors.Is(err, pkgerrors.ErrMultipleObjectsFound) 成立
func (e *MultipleObjectsFoundError) Is(target error) bool {
	return target == pkgerrors.ErrMultipleObjectsFound
}

func validateID(id string) error {
	if id == "" {
		return pkgerrors.InvalidArgf("id must not be empty")
	}
	if strings.Contains(id, "/") {
		return pkgerrors.InvalidArgf("id %q must not contain /", id)
	}
	return nil
}
