package service

// Service 实例变量
var (
	PermissionServiceInstance *PermissionService
	DepartmentServiceInstance *DepartmentService
	AuthzServiceInstance      *AuthzService
	UserServiceInstance       *UserService
)

// dao层初始化完成后，调用Init函数
func Init() error {
	// 初始化核心服务
	PermissionServiceInstance = NewPermissionService()
	DepartmentServiceInstance = NewDepartmentService()
	AuthzServiceInstance = NewAuthzService(PermissionServiceInstance, DepartmentServiceInstance)
	UserServiceInstance = NewUserService(PermissionServiceInstance, AuthzServiceInstance)

	return nil
}
