package services

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators   = regexp.MustCompile(`[-\s]+`)
)

// slugify 从名称派生别名：小写、去除非词字符、空白折叠为连字符
func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugSeparators.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// uniqueSlug 生成表内唯一别名：冲突时依次追加 -1、-2 直到空闲
// 探测循环存在检查后插入的竞态窗口，插入方靠唯一索引兜底并重试
func uniqueSlug(db *gorm.DB, model interface{}, name string, excludeID uint) (string, error) {
	base := slugify(name)

	slug := base
	counter := 1
	for {
		query := db.Model(model).Where("slug = ?", slug)
		if excludeID > 0 {
			query = query.Where("id <> ?", excludeID)
		}

		var count int64
		if err := query.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}

		slug = fmt.Sprintf("%s-%d", base, counter)
		counter++
	}
}
