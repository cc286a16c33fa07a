package dto

type RegisterRequestDTO struct {
	Email    string `json:"email" example:"student@university.edu.sa"`
	Password string `json:"password" example:"s3cret-pass"`
}

type RegisterResponseDTO struct {
	Message string `json:"message" example:"User successfully registered"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" example:"student@university.edu.sa"`
	Password string `json:"password" example:"s3cret-pass"`
}

type LoginResponseDTO struct {
	Message string `json:"message" example:"User successfully authenticated"`
}
