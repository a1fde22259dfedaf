package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/commissions/internal/api"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/services"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *api.Empty) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK", Time: time.Now().UTC()}, nil
}

// Me records the caller on first contact and returns the stored user.
func (s *GRPCServer) Me(ctx context.Context, _ *api.Empty) (*models.User, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	name := id.Username
	if name == "" {
		name = id.UserID
	}
	return s.svc.Users.EnsureUser(ctx, id.UserID, name)
}

// wallet

func (s *GRPCServer) GetWallet(ctx context.Context, _ *api.Empty) (*models.Wallet, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Ledger.GetWallet(ctx, id.UserID)
}

func (s *GRPCServer) ListTransactions(ctx context.Context, req *api.ListTransactionsRequest) (*api.TransactionList, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.svc.Ledger.ListTransactions(ctx, id.UserID, req.Limit)
	if err != nil {
		return nil, err
	}
	return &api.TransactionList{Transactions: txs}, nil
}

func (s *GRPCServer) Deposit(ctx context.Context, req *api.DepositRequest) (*models.Wallet, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Ledger.Deposit(ctx, id.UserID, req.UserID, req.AmountCents, req.Note)
}

func (s *GRPCServer) TransferFunds(ctx context.Context, req *api.TransferRequest) (*api.Empty, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Ledger.TransferBetweenUsers(ctx, req.FromID, req.ToID, req.AmountCents, id.UserID, req.Reason); err != nil {
		return nil, err
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) SetAdmin(ctx context.Context, req *api.SetAdminRequest) (*api.Empty, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Users.GrantAdmin(ctx, id.UserID, req.UserID, req.IsAdmin); err != nil {
		return nil, err
	}
	return &api.Empty{}, nil
}

// contracts

func (s *GRPCServer) CreateContract(ctx context.Context, req *api.CreateContractRequest) (*models.Contract, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Contracts.CreateFromProposal(ctx, id.UserID, req.Proposal, req.Payment)
}

func (s *GRPCServer) GetContract(ctx context.Context, req *api.ContractRef) (*models.Contract, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Contracts.GetContract(ctx, id.UserID, req.ContractID)
}

func (s *GRPCServer) ListContracts(ctx context.Context, req *api.ListContractsRequest) (*api.ContractList, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.Contracts.ListContracts(ctx, id.UserID, req.Statuses)
	if err != nil {
		return nil, err
	}
	return &api.ContractList{Contracts: list}, nil
}

func (s *GRPCServer) ClaimFunds(ctx context.Context, req *api.ContractRef) (*api.ClaimResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := s.svc.Contracts.ClaimFunds(ctx, req.ContractID, id.UserID)
	if err != nil {
		return nil, err
	}
	return &api.ClaimResponse{ClaimedCents: amount}, nil
}

func (s *GRPCServer) ExtendDeadline(ctx context.Context, req *api.ExtendDeadlineRequest) (*models.Contract, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Contracts.ExtendContractDeadline(ctx, req.ContractID, id.UserID, req.NewDeadlineAt)
}

// uploads

func (s *GRPCServer) CreateUpload(ctx context.Context, req *api.CreateUploadRequest) (*models.Upload, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Uploads.CreateUpload(ctx, id.UserID, req.ContractID, req.Upload)
}

func (s *GRPCServer) ReviewUpload(ctx context.Context, req *api.ReviewUploadRequest) (*models.Upload, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Uploads.ReviewUpload(ctx, id.UserID, req.Kind, req.UploadID, req.Accept)
}

func (s *GRPCServer) ListUploads(ctx context.Context, req *api.ListUploadsRequest) (*api.UploadList, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var list []*models.Upload
	if req.MilestoneIndex != nil {
		list, err = s.svc.Uploads.ListMilestoneUploads(ctx, id.UserID, req.ContractID, *req.MilestoneIndex)
	} else {
		list, err = s.svc.Uploads.ListUploads(ctx, id.UserID, req.ContractID, req.Kind)
	}
	if err != nil {
		return nil, err
	}
	return &api.UploadList{Uploads: list}, nil
}

// tickets

func (s *GRPCServer) CreateCancelTicket(ctx context.Context, req *api.CreateCancelTicketRequest) (*models.CancelTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.CreateCancelTicket(ctx, id.UserID, req.ContractID, req.Reason)
}

func (s *GRPCServer) RespondCancelTicket(ctx context.Context, req *api.RespondRequest) (*models.CancelTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.RespondCancelTicket(ctx, id.UserID, req.TicketID, req.Accept)
}

func (s *GRPCServer) CreateRevisionTicket(ctx context.Context, req *api.CreateRevisionTicketRequest) (*models.RevisionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.CreateRevisionTicket(ctx, id.UserID, req.ContractID, req.Revision)
}

func (s *GRPCServer) RespondRevisionTicket(ctx context.Context, req *api.RespondRequest) (*models.RevisionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.RespondRevisionTicket(ctx, id.UserID, req.TicketID, req.Accept)
}

func (s *GRPCServer) PayRevisionTicket(ctx context.Context, req *api.PayTicketRequest) (*models.RevisionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.PayRevisionTicket(ctx, id.UserID, req.TicketID, req.Payment)
}

func (s *GRPCServer) CreateChangeTicket(ctx context.Context, req *api.CreateChangeTicketRequest) (*models.ChangeTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.CreateChangeTicket(ctx, id.UserID, req.ContractID, req.Change)
}

func (s *GRPCServer) RespondChangeTicket(ctx context.Context, req *api.RespondRequest) (*models.ChangeTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.RespondChangeTicket(ctx, id.UserID, req.TicketID, req.Accept, req.FeeCents)
}

func (s *GRPCServer) PayChangeTicket(ctx context.Context, req *api.PayTicketRequest) (*models.ChangeTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.PayChangeTicket(ctx, id.UserID, req.TicketID, req.Payment)
}

func (s *GRPCServer) ListTickets(ctx context.Context, req *api.ContractRef) (*models.TicketSet, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Tickets.ListTickets(ctx, id.UserID, req.ContractID)
}

// disputes

func (s *GRPCServer) SubmitResolution(ctx context.Context, req *api.SubmitResolutionRequest) (*models.ResolutionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Resolutions.SubmitResolution(ctx, id.UserID, req.ContractID, req.Resolution)
}

func (s *GRPCServer) SubmitCounterproof(ctx context.Context, req *api.SubmitCounterproofRequest) (*models.ResolutionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Resolutions.SubmitCounterproof(ctx, id.UserID, req.TicketID, req.Counterproof)
}

func (s *GRPCServer) CancelResolution(ctx context.Context, req *api.TicketRef) (*models.ResolutionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Resolutions.CancelResolution(ctx, id.UserID, req.TicketID)
}

func (s *GRPCServer) ResolveDispute(ctx context.Context, req *api.ResolveDisputeRequest) (*models.ResolutionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Resolutions.ResolveDispute(ctx, req.TicketID, id.UserID, req.Decision, req.Note)
}

func (s *GRPCServer) GetResolution(ctx context.Context, req *api.TicketRef) (*models.ResolutionTicket, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Resolutions.GetResolution(ctx, id.UserID, req.TicketID)
}

func (s *GRPCServer) ListResolutions(ctx context.Context, req *api.ContractRef) (*api.ResolutionList, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.Resolutions.ListResolutions(ctx, id.UserID, req.ContractID)
	if err != nil {
		return nil, err
	}
	return &api.ResolutionList{Resolutions: list}, nil
}

// ProcessExpirations runs the reconciliation sweep for the caller.
func (s *GRPCServer) ProcessExpirations(ctx context.Context, req *api.ProcessExpirationsRequest) (*services.ExpirationSummary, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.ContractID == "" {
		return s.svc.Reconciler.ProcessAllUserExpirations(ctx, id.UserID)
	}
	return s.svc.Reconciler.ProcessContractExpirations(ctx, req.ContractID, id.UserID)
}
