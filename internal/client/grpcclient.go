package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/api"
	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewClient connects to endpointURL and authenticates with accessToken.
// Extra dial options are appended, e.g. a context dialer in tests.
func NewClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// SetAccessToken replaces the token sent with later calls.
func (s *GRPCClient) SetAccessToken(token string) {
	s.accessToken = token
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	if err := s.conn.Invoke(ctx, api.FullMethod(method), req, resp); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return fmt.Errorf("%s: %w", st.Message(), ErrUnavailable)
		}
	}
	return api.FromStatus(err)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var resp api.PingResponse
	if err := s.invoke(ctx, api.MethodPing, &api.Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

// Me registers the caller with the server and returns the stored user.
func (s *GRPCClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.invoke(ctx, api.MethodMe, &api.Empty{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GRPCClient) GetWallet(ctx context.Context) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.invoke(ctx, api.MethodGetWallet, &api.Empty{}, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *GRPCClient) ListTransactions(ctx context.Context, limit int) ([]*models.WalletTransaction, error) {
	var resp api.TransactionList
	if err := s.invoke(ctx, api.MethodListTransactions, &api.ListTransactionsRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (s *GRPCClient) Deposit(ctx context.Context, userID string, amountCents int64, note string) (*models.Wallet, error) {
	var w models.Wallet
	req := &api.DepositRequest{UserID: userID, AmountCents: amountCents, Note: note}
	if err := s.invoke(ctx, api.MethodDeposit, req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *GRPCClient) TransferFunds(ctx context.Context, fromID, toID string, amountCents int64, reason string) error {
	req := &api.TransferRequest{FromID: fromID, ToID: toID, AmountCents: amountCents, Reason: reason}
	return s.invoke(ctx, api.MethodTransferFunds, req, &api.Empty{})
}

func (s *GRPCClient) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return s.invoke(ctx, api.MethodSetAdmin, &api.SetAdminRequest{UserID: userID, IsAdmin: isAdmin}, &api.Empty{})
}

func (s *GRPCClient) CreateContract(ctx context.Context, p models.Proposal, pay models.Payment) (*models.Contract, error) {
	var c models.Contract
	if err := s.invoke(ctx, api.MethodCreateContract, &api.CreateContractRequest{Proposal: p, Payment: pay}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GRPCClient) GetContract(ctx context.Context, contractID string) (*models.Contract, error) {
	var c models.Contract
	if err := s.invoke(ctx, api.MethodGetContract, &api.ContractRef{ContractID: contractID}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GRPCClient) ListContracts(ctx context.Context, statuses ...models.ContractStatus) ([]*models.Contract, error) {
	var resp api.ContractList
	if err := s.invoke(ctx, api.MethodListContracts, &api.ListContractsRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return resp.Contracts, nil
}

func (s *GRPCClient) ClaimFunds(ctx context.Context, contractID string) (int64, error) {
	var resp api.ClaimResponse
	if err := s.invoke(ctx, api.MethodClaimFunds, &api.ContractRef{ContractID: contractID}, &resp); err != nil {
		return 0, err
	}
	return resp.ClaimedCents, nil
}

func (s *GRPCClient) ExtendDeadline(ctx context.Context, contractID string, newDeadline time.Time) (*models.Contract, error) {
	var c models.Contract
	req := &api.ExtendDeadlineRequest{ContractID: contractID, NewDeadlineAt: newDeadline}
	if err := s.invoke(ctx, api.MethodExtendDeadline, req, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GRPCClient) CreateUpload(ctx context.Context, contractID string, in services.UploadInput) (*models.Upload, error) {
	var u models.Upload
	if err := s.invoke(ctx, api.MethodCreateUpload, &api.CreateUploadRequest{ContractID: contractID, Upload: in}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GRPCClient) ReviewUpload(ctx context.Context, kind models.UploadKind, uploadID string, accept bool) (*models.Upload, error) {
	var u models.Upload
	req := &api.ReviewUploadRequest{Kind: kind, UploadID: uploadID, Accept: accept}
	if err := s.invoke(ctx, api.MethodReviewUpload, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GRPCClient) ListUploads(ctx context.Context, contractID string, kind models.UploadKind) ([]*models.Upload, error) {
	var resp api.UploadList
	if err := s.invoke(ctx, api.MethodListUploads, &api.ListUploadsRequest{ContractID: contractID, Kind: kind}, &resp); err != nil {
		return nil, err
	}
	return resp.Uploads, nil
}

func (s *GRPCClient) ListMilestoneUploads(ctx context.Context, contractID string, milestoneIndex int) ([]*models.Upload, error) {
	var resp api.UploadList
	req := &api.ListUploadsRequest{ContractID: contractID, MilestoneIndex: &milestoneIndex}
	if err := s.invoke(ctx, api.MethodListUploads, req, &resp); err != nil {
		return nil, err
	}
	return resp.Uploads, nil
}

func (s *GRPCClient) CreateCancelTicket(ctx context.Context, contractID, reason string) (*models.CancelTicket, error) {
	var t models.CancelTicket
	req := &api.CreateCancelTicketRequest{ContractID: contractID, Reason: reason}
	if err := s.invoke(ctx, api.MethodCreateCancelTicket, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) RespondCancelTicket(ctx context.Context, ticketID string, accept bool) (*models.CancelTicket, error) {
	var t models.CancelTicket
	if err := s.invoke(ctx, api.MethodRespondCancelTicket, &api.RespondRequest{TicketID: ticketID, Accept: accept}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) CreateRevisionTicket(ctx context.Context, contractID string, in services.RevisionInput) (*models.RevisionTicket, error) {
	var t models.RevisionTicket
	req := &api.CreateRevisionTicketRequest{ContractID: contractID, Revision: in}
	if err := s.invoke(ctx, api.MethodCreateRevisionTicket, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) RespondRevisionTicket(ctx context.Context, ticketID string, accept bool) (*models.RevisionTicket, error) {
	var t models.RevisionTicket
	if err := s.invoke(ctx, api.MethodRespondRevisionTicket, &api.RespondRequest{TicketID: ticketID, Accept: accept}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) PayRevisionTicket(ctx context.Context, ticketID string, pay models.Payment) (*models.RevisionTicket, error) {
	var t models.RevisionTicket
	if err := s.invoke(ctx, api.MethodPayRevisionTicket, &api.PayTicketRequest{TicketID: ticketID, Payment: pay}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) CreateChangeTicket(ctx context.Context, contractID string, in services.ChangeInput) (*models.ChangeTicket, error) {
	var t models.ChangeTicket
	req := &api.CreateChangeTicketRequest{ContractID: contractID, Change: in}
	if err := s.invoke(ctx, api.MethodCreateChangeTicket, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RespondChangeTicket answers a change ticket. feeCents is charged to the
// client when accepting and may be zero.
func (s *GRPCClient) RespondChangeTicket(ctx context.Context, ticketID string, accept bool, feeCents int64) (*models.ChangeTicket, error) {
	var t models.ChangeTicket
	req := &api.RespondRequest{TicketID: ticketID, Accept: accept, FeeCents: feeCents}
	if err := s.invoke(ctx, api.MethodRespondChangeTicket, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) PayChangeTicket(ctx context.Context, ticketID string, pay models.Payment) (*models.ChangeTicket, error) {
	var t models.ChangeTicket
	if err := s.invoke(ctx, api.MethodPayChangeTicket, &api.PayTicketRequest{TicketID: ticketID, Payment: pay}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) ListTickets(ctx context.Context, contractID string) (*models.TicketSet, error) {
	var set models.TicketSet
	if err := s.invoke(ctx, api.MethodListTickets, &api.ContractRef{ContractID: contractID}, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *GRPCClient) SubmitResolution(ctx context.Context, contractID string, in services.ResolutionInput) (*models.ResolutionTicket, error) {
	var t models.ResolutionTicket
	req := &api.SubmitResolutionRequest{ContractID: contractID, Resolution: in}
	if err := s.invoke(ctx, api.MethodSubmitResolution, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) SubmitCounterproof(ctx context.Context, ticketID string, in services.CounterproofInput) (*models.ResolutionTicket, error) {
	var t models.ResolutionTicket
	req := &api.SubmitCounterproofRequest{TicketID: ticketID, Counterproof: in}
	if err := s.invoke(ctx, api.MethodSubmitCounterproof, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) CancelResolution(ctx context.Context, ticketID string) (*models.ResolutionTicket, error) {
	var t models.ResolutionTicket
	if err := s.invoke(ctx, api.MethodCancelResolution, &api.TicketRef{TicketID: ticketID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) ResolveDispute(ctx context.Context, ticketID string, decision models.Decision, note string) (*models.ResolutionTicket, error) {
	var t models.ResolutionTicket
	req := &api.ResolveDisputeRequest{TicketID: ticketID, Decision: decision, Note: note}
	if err := s.invoke(ctx, api.MethodResolveDispute, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) GetResolution(ctx context.Context, ticketID string) (*models.ResolutionTicket, error) {
	var t models.ResolutionTicket
	if err := s.invoke(ctx, api.MethodGetResolution, &api.TicketRef{TicketID: ticketID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GRPCClient) ListResolutions(ctx context.Context, contractID string) ([]*models.ResolutionTicket, error) {
	var resp api.ResolutionList
	if err := s.invoke(ctx, api.MethodListResolutions, &api.ContractRef{ContractID: contractID}, &resp); err != nil {
		return nil, err
	}
	return resp.Resolutions, nil
}

// ProcessExpirations sweeps contractID, or every live contract of the
// caller when contractID is empty.
func (s *GRPCClient) ProcessExpirations(ctx context.Context, contractID string) (*services.ExpirationSummary, error) {
	var sum services.ExpirationSummary
	if err := s.invoke(ctx, api.MethodProcessExpirations, &api.ProcessExpirationsRequest{ContractID: contractID}, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}
