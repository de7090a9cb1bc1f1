package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeBuilder/internal/resume"
)

// DefaultTemplateKey 是创建简历时未指定模板所使用的模板。
const DefaultTemplateKey = "modern"

var sectionTypeCatalog = []SectionType{
	{Key: resume.SectionSummary, Name: "Professional Summary", IsSingleton: true, DefaultFields: datatypes.JSON(`{"text":""}`)},
	{Key: resume.SectionExperience, Name: "Work Experience", DefaultFields: datatypes.JSON(`{"company":"","role":"","location":"","startDate":"","endDate":"","current":false,"description":[]}`)},
	{Key: resume.SectionEducation, Name: "Education", DefaultFields: datatypes.JSON(`{"school":"","degree":"","field":"","startDate":"","endDate":"","gpa":"","honors":""}`)},
	{Key: resume.SectionSkills, Name: "Skills", IsSingleton: true, DefaultFields: datatypes.JSON(`{"categories":[{"name":"","skills":[]}]}`)},
	{Key: resume.SectionProjects, Name: "Projects", DefaultFields: datatypes.JSON(`{"name":"","url":"","role":"","description":"","technologies":[]}`)},
	{Key: resume.SectionCertifications, Name: "Certifications", DefaultFields: datatypes.JSON(`{"name":"","issuer":"","date":""}`)},
	{Key: resume.SectionAwards, Name: "Awards", DefaultFields: datatypes.JSON(`{"title":"","issuer":"","date":"","description":""}`)},
	{Key: resume.SectionVolunteer, Name: "Volunteer", DefaultFields: datatypes.JSON(`{"organization":"","role":"","startDate":"","endDate":"","description":""}`)},
	{Key: resume.SectionLanguages, Name: "Languages", IsSingleton: true, DefaultFields: datatypes.JSON(`{"name":"","proficiency":""}`)},
	{Key: resume.SectionCustom, Name: "Custom", DefaultFields: datatypes.JSON(`{"title":"","text":""}`)},
}

var templateCatalog = []Template{
	{
		Key:          "modern",
		Name:         "Modern",
		Description:  "Two-column layout with an accent sidebar",
		LayoutConfig: datatypes.JSON(`{"columns":2,"sidebar":"left"}`),
		IsPublic:     true,
		Themes: []Theme{
			{Name: "Ocean", ColorScheme: datatypes.JSON(`{"primary":"#1d4ed8","text":"#111827"}`), Typography: datatypes.JSON(`{"font":"Inter","size":11}`), Spacing: datatypes.JSON(`{"section":16}`)},
			{Name: "Forest", ColorScheme: datatypes.JSON(`{"primary":"#15803d","text":"#111827"}`), Typography: datatypes.JSON(`{"font":"Inter","size":11}`), Spacing: datatypes.JSON(`{"section":16}`)},
		},
	},
	{
		Key:          "classic",
		Name:         "Classic",
		Description:  "Single column serif layout",
		LayoutConfig: datatypes.JSON(`{"columns":1}`),
		IsPublic:     true,
		Themes: []Theme{
			{Name: "Ink", ColorScheme: datatypes.JSON(`{"primary":"#000000","text":"#1f2937"}`), Typography: datatypes.JSON(`{"font":"Georgia","size":11}`), Spacing: datatypes.JSON(`{"section":14}`)},
		},
	},
	{
		Key:          "minimal",
		Name:         "Minimal",
		Description:  "Whitespace-first single column layout",
		LayoutConfig: datatypes.JSON(`{"columns":1,"dividers":false}`),
		IsPublic:     true,
		Themes: []Theme{
			{Name: "Mono", ColorScheme: datatypes.JSON(`{"primary":"#374151","text":"#111827"}`), Typography: datatypes.JSON(`{"font":"IBM Plex Sans","size":10}`), Spacing: datatypes.JSON(`{"section":20}`)},
		},
	},
}

// SeedCatalog 幂等写入区块类型与模板/主题目录，已存在的 key 不会被覆盖。
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, st := range sectionTypeCatalog {
			row := st
			if err := tx.Where(&SectionType{Key: row.Key}).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed section type %s: %w", st.Key, err)
			}
		}
		for _, tpl := range templateCatalog {
			var existing Template
			err := tx.Where(&Template{Key: tpl.Key}).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("query template %s: %w", tpl.Key, err)
			}
			row := tpl
			row.Themes = append([]Theme(nil), tpl.Themes...)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("seed template %s: %w", tpl.Key, err)
			}
		}
		return nil
	})
}
