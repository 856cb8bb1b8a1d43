package cognitoclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type User struct {
	Email    string
	Password string
}

type UserLogin struct {
	Email    string
	Password string
}

type UserConfirmation struct {
	Email string
	Code  string
}

type AuthCreate struct {
	AccessToken string
	IDToken     string
}

// identityProvider is the subset of the Cognito API this client calls.
type identityProvider interface {
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	AdminDeleteUser(ctx context.Context, params *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
}

type Settings struct {
	ClientID     string
	ClientSecret string
	UserPoolID   string
}

type CognitoClient struct {
	api      identityProvider
	settings Settings
}

func InitCognitoClient(cfg aws.Config, settings Settings) (*CognitoClient, error) {
	if settings.ClientID == "" || settings.UserPoolID == "" {
		return nil, errors.New("cognito client id and user pool id are required")
	}
	return &CognitoClient{api: cip.NewFromConfig(cfg), settings: settings}, nil
}

func (c *CognitoClient) SignUp(user *User) (string, error) {
	out, err := c.api.SignUp(context.Background(), &cip.SignUpInput{
		ClientId:   aws.String(c.settings.ClientID),
		SecretHash: c.secretHash(user.Email),
		Username:   aws.String(user.Email),
		Password:   aws.String(user.Password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(user.Email)},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.UserSub), nil
}

func (c *CognitoClient) SignIn(login *UserLogin) (*AuthCreate, error) {
	params := map[string]string{
		"USERNAME": login.Email,
		"PASSWORD": login.Password,
	}
	if hash := c.secretHash(login.Email); hash != nil {
		params["SECRET_HASH"] = *hash
	}

	out, err := c.api.InitiateAuth(context.Background(), &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.settings.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, err
	}
	if out.AuthenticationResult == nil {
		return nil, errors.New("cognito returned a challenge instead of tokens")
	}
	return &AuthCreate{
		AccessToken: aws.ToString(out.AuthenticationResult.AccessToken),
		IDToken:     aws.ToString(out.AuthenticationResult.IdToken),
	}, nil
}

func (c *CognitoClient) ConfirmAccount(confirmation *UserConfirmation) error {
	_, err := c.api.ConfirmSignUp(context.Background(), &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.settings.ClientID),
		SecretHash:       c.secretHash(confirmation.Email),
		Username:         aws.String(confirmation.Email),
		ConfirmationCode: aws.String(confirmation.Code),
	})
	return err
}

func (c *CognitoClient) AdminDeleteUser(email string) error {
	_, err := c.api.AdminDeleteUser(context.Background(), &cip.AdminDeleteUserInput{
		UserPoolId: aws.String(c.settings.UserPoolID),
		Username:   aws.String(email),
	})
	return err
}

// secretHash is only required by app clients created with a secret.
func (c *CognitoClient) secretHash(username string) *string {
	if c.settings.ClientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(c.settings.ClientSecret))
	mac.Write([]byte(username + c.settings.ClientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}
