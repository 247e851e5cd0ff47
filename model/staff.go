package model

import "github.com/villacheck/server/rows"

// Staff is a row of the Staff table. Password holds a bcrypt hash.
type Staff struct {
	StaffID  string
	Name     string
	Login    string
	Password string
}

func StaffFromRecord(r rows.Record) Staff {
	return Staff{
		StaffID:  r.String("staff_id"),
		Name:     r.String("name"),
		Login:    r.String("login"),
		Password: r.String("password"),
	}
}
