package rbac

// Default role policy. Students take exams and buy explanation access;
// admins author content and see everything.
var RolePermissions = map[string][]string{
	"student": {
		"tryout:view",
		"attempt:start",
		"attempt:save",
		"attempt:submit",
		"result:view-own",
		"ranking:view",
		"payment:create",
		"payment:status",
		"explanation:view",
	},
	"admin": {
		"*",
	},
}
