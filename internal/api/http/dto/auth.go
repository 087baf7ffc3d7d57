package dto

type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type LoginView struct {
	Error string
}
