// Package score 提供匹配得分矩阵与最佳位置选择
package score

import (
	"fmt"
	"strconv"
	"strings"
)

// Method 比较方法，取值与 OpenCV TemplateMatchModes 一致
type Method int

const (
	// SqDiff 平方差，越小越好
	SqDiff Method = iota
	// SqDiffNormed 归一化平方差，越小越好
	SqDiffNormed
	// CCorr 互相关
	CCorr
	// CCorrNormed 归一化互相关
	CCorrNormed
	// CCoeff 相关系数
	CCoeff
	// CCoeffNormed 归一化相关系数
	CCoeffNormed
)

// DefaultMethod 默认比较方法
const DefaultMethod = CCoeffNormed

var methodNames = map[Method]string{
	SqDiff:       "sqdiff",
	SqDiffNormed: "sqdiff_normed",
	CCorr:        "ccorr",
	CCorrNormed:  "ccorr_normed",
	CCoeff:       "ccoeff",
	CCoeffNormed: "ccoeff_normed",
}

// LowerIsBetter 差值类方法返回 true，其余方法均按越大越好处理
func (m Method) LowerIsBetter() bool {
	return m == SqDiff || m == SqDiffNormed
}

// Valid 是否为已知方法
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod 解析方法名或数字
// 支持 "sqdiff_normed"、"TM_SQDIFF_NORMED"、"1" 等写法
func ParseMethod(s string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimPrefix(key, "tm_")
	key = strings.ReplaceAll(key, "-", "_")

	if n, err := strconv.Atoi(key); err == nil {
		m := Method(n)
		if !m.Valid() {
			return 0, fmt.Errorf("未知的比较方法: %s", s)
		}
		return m, nil
	}

	for m, name := range methodNames {
		if name == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("未知的比较方法: %s", s)
}
