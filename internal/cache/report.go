package cache

import (
	"errors"
	"fmt"
)

// PersistenceError 描述一次失败的尽力写入，不会作为 error 返回给调用方。
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// WriteReport 汇总一次保存中各个独立步骤的结果。
type WriteReport struct {
	Path     string
	DirErr   *PersistenceError
	LogErr   *PersistenceError
	WriteErr *PersistenceError
}

// OK 表示所有步骤均成功。
func (r WriteReport) OK() bool {
	return r.DirErr == nil && r.LogErr == nil && r.WriteErr == nil
}

// Saved 表示条目本身已写入（日志追加失败不影响该结果）。
func (r WriteReport) Saved() bool {
	return r.WriteErr == nil
}

// Err 合并全部失败步骤，便于日志记录；全部成功时返回 nil。
func (r WriteReport) Err() error {
	var errs []error
	for _, e := range []*PersistenceError{r.DirErr, r.LogErr, r.WriteErr} {
		if e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}
