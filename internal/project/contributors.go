package project

import (
	"errors"
	"strings"
)

var (
	ErrContributorName      = errors.New("contributor name cannot be empty")
	ErrDuplicateContributor = errors.New("contributor already exists")
)

// Contributor：报告贡献者；观测按名称弱引用
type Contributor struct {
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	Bio   string  `json:"bio"`
	Image *string `json:"image"`
}

// DefaultContributors：新项目自带的唯一贡献者
func DefaultContributors() []Contributor {
	return []Contributor{{Name: "Default User", Role: "Project Lead", Bio: "<p>Initial user for this project.</p>"}}
}

// AddContributor：名称必填，按不区分大小写判重
func (s *State) AddContributor(c Contributor) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrContributorName
	}
	for _, ex := range s.Contributors {
		if strings.EqualFold(ex.Name, c.Name) {
			return ErrDuplicateContributor
		}
	}
	s.Contributors = append(s.Contributors, c)
	return nil
}

// RemoveContributor：按名称删除；观测中的引用保持不变
func (s *State) RemoveContributor(name string) bool {
	for i, c := range s.Contributors {
		if c.Name == name {
			s.Contributors = append(s.Contributors[:i], s.Contributors[i+1:]...)
			return true
		}
	}
	return false
}
