package learner

import "testing"

func TestMaxRolePriority(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{name: "no roles", want: 0},
		{name: "unknown role", roles: []string{"guest:"}, want: 0},
		{name: "learner", roles: []string{RoleLearner}, want: 1},
		{name: "sub role", roles: []string{RoleManager + "cohort-a"}, want: 20},
		{name: "highest wins", roles: []string{RoleLearner, RoleAdmin, RoleInstructor}, want: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxRolePriority(tt.roles); got != tt.want {
				t.Errorf("MaxRolePriority() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLearner_CanManage(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{name: "learner", roles: []string{RoleLearner}},
		{name: "instructor", roles: []string{RoleInstructor}},
		{name: "manager", roles: []string{RoleManager}, want: true},
		{name: "admin", roles: []string{RoleLearner, RoleAdmin}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Learner{Roles: tt.roles}).CanManage(); got != tt.want {
				t.Errorf("CanManage() = %v, want %v", got, tt.want)
			}
		})
	}
}
