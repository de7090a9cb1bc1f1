package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Email        string   `gorm:"uniqueIndex;size:255"`
	Name         string   `gorm:"size:128"`
	PasswordHash string   `gorm:"size:255"`
	Resumes      []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户创建的简历，正文由 Section/SectionItem 组成。
type Resume struct {
	gorm.Model
	Title        string        `gorm:"size:255"`
	Slug         string        `gorm:"uniqueIndex;size:300"`
	Status       string        `gorm:"size:32;index"`
	UserID       uint          `gorm:"index"`
	User         User          `gorm:"constraint:OnDelete:CASCADE"`
	PdfObjectKey string        `gorm:"size:512"`
	Sections     []Section     `gorm:"constraint:OnDelete:CASCADE"`
	Design       *ResumeDesign `gorm:"constraint:OnDelete:CASCADE"`
}

// SectionType 是区块类型目录，由 admin 命令写入种子数据。
type SectionType struct {
	ID            uint           `gorm:"primaryKey"`
	Key           string         `gorm:"uniqueIndex;size:64"`
	Name          string         `gorm:"size:128"`
	IsSingleton   bool           `gorm:"not null"`
	DefaultFields datatypes.JSON `gorm:"type:jsonb"`
}

// Section 是简历中的一个区块。
type Section struct {
	ID            uint           `gorm:"primaryKey"`
	ResumeID      uint           `gorm:"index"`
	SectionTypeID uint           `gorm:"index"`
	SectionType   SectionType    `gorm:"constraint:OnDelete:RESTRICT"`
	Heading       string         `gorm:"size:255"`
	Position      int            `gorm:"not null"`
	Visible       bool           `gorm:"not null"`
	LayoutConfig  datatypes.JSON `gorm:"type:jsonb"`
	Items         []SectionItem  `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SectionItem 是区块中的一条记录。
type SectionItem struct {
	ID        uint           `gorm:"primaryKey"`
	SectionID uint           `gorm:"index"`
	Position  int            `gorm:"not null"`
	DataJSON  datatypes.JSON `gorm:"column:data_json;type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Template 表示可复用的版式模板，主题挂在模板下。
type Template struct {
	ID           uint           `gorm:"primaryKey"`
	Key          string         `gorm:"uniqueIndex;size:64"`
	Name         string         `gorm:"size:128"`
	Description  string         `gorm:"size:512"`
	PreviewImage string         `gorm:"size:512"`
	LayoutConfig datatypes.JSON `gorm:"type:jsonb"`
	IsPublic     bool           `gorm:"not null"`
	Themes       []Theme        `gorm:"constraint:OnDelete:CASCADE"`
}

// Theme 是模板的一套配色与排版。
type Theme struct {
	ID          uint           `gorm:"primaryKey"`
	TemplateID  uint           `gorm:"index"`
	Name        string         `gorm:"size:128"`
	ColorScheme datatypes.JSON `gorm:"type:jsonb"`
	Typography  datatypes.JSON `gorm:"type:jsonb"`
	Spacing     datatypes.JSON `gorm:"type:jsonb"`
}

// ResumeDesign 记录简历选用的模板、主题与自定义覆盖项，每份简历恰好一条。
type ResumeDesign struct {
	ID              uint           `gorm:"primaryKey"`
	ResumeID        uint           `gorm:"uniqueIndex"`
	TemplateID      uint           `gorm:"index"`
	ThemeID         *uint          `gorm:"index"`
	CustomOverrides datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt       time.Time
}

// ResumeVersion 是简历在某一时刻的完整快照。
type ResumeVersion struct {
	ID         uint           `gorm:"primaryKey"`
	ResumeID   uint           `gorm:"uniqueIndex:idx_resume_version"`
	VersionNum int            `gorm:"uniqueIndex:idx_resume_version"`
	Snapshot   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

// SharingLink 是简历的公开分享链接。
type SharingLink struct {
	ID           uint   `gorm:"primaryKey"`
	ResumeID     uint   `gorm:"index"`
	Resume       Resume `gorm:"constraint:OnDelete:CASCADE"`
	Slug         string `gorm:"uniqueIndex;size:64"`
	Visibility   string `gorm:"size:16"`
	PasswordHash *string
	ExpiresAt    *time.Time
	ViewCount    int `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Models 返回需要迁移的全部模型，顺序满足外键依赖。
func Models() []any {
	return []any{
		&User{},
		&Resume{},
		&SectionType{},
		&Section{},
		&SectionItem{},
		&Template{},
		&Theme{},
		&ResumeDesign{},
		&ResumeVersion{},
		&SharingLink{},
	}
}
