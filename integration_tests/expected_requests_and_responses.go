package integration_tests

type ExpectedCreateUserRequestBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ExpectedCreateUserResponseBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ExpectedAuthRequestBody struct {
	Login        string `json:"login"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

type ExpectedAuthResponseBody struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
}
