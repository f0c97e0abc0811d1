package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 描述一次入站请求，供代理日志复用。
func RequestFields(requestID, fingerprint, method, url string) logrus.Fields {
	return logrus.Fields{
		"request_id":  requestID,
		"fingerprint": fingerprint,
		"method":      method,
		"url":         url,
	}
}

// ResolutionFields 描述策略决策结果。
func ResolutionFields(behavior, source string, status int) logrus.Fields {
	return logrus.Fields{
		"behavior": behavior,
		"source":   source,
		"status":   status,
	}
}

// Merge 合并多组字段，后出现的键覆盖先出现的键。
func Merge(sets ...logrus.Fields) logrus.Fields {
	out := logrus.Fields{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
