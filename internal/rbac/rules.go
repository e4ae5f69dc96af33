package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"definition:view",
		"instance:view-own",
	},
	"teacher": {
		"definition:view",
		"definition:edit",
		"definition:delete",
		"definition:regrade",
		"instance:grade",
		"instance:view-own",
		"instance:view-all",
		"activity:record",
	},
	"admin": {
		"*", // everything
	},
}
