package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Category{},
		&Article{},
		&Event{},
		&TeamMember{},
		&Advertisement{},
		&FooterSection{},
		&AdminUser{},
		&ArticleView{},
		&VisitorLog{},
		&PageView{},
	}
}
